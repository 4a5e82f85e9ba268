// Package routerdata decodes the two telemetry documents served by an
// MSunPV solar router: the live status document (status.xml) and the
// index document (index.xml) that describes how to interpret it for
// the connected hardware model.
//
// Decoding is deliberately tolerant: a missing or malformed field
// decodes to its documented default value, so a caller polling the
// device sees transient glitches as stable zero values rather than
// errors. The only hard failure is a document whose outer envelope
// cannot be parsed at all (see ErrEnvelope).
package routerdata

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	errgo "gopkg.in/errgo.v1"
)

// ErrEnvelope is the cause of errors returned by DecodeStatus and
// DecodeIndex when the document's outer XML envelope cannot be parsed.
var ErrEnvelope = errgo.New("invalid document envelope")

// document holds the fields of a parsed envelope, keyed by element
// name. Values hold the raw character data of each field; the router
// never nests markup inside them.
type document map[string]string

// parseDocument parses the outer XML envelope of a router document
// into its key→value fields. The router declares its documents as
// ISO-8859-1, so the decoder is charset-aware. If a field appears
// more than once, the last occurrence wins.
func parseDocument(text string) (document, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = charset.NewReaderLabel
	doc := make(document)
	depth := 0
	sawRoot := false
	name := ""
	var data strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errgo.WithCausef(err, ErrEnvelope, "cannot parse document")
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true
			if depth == 2 {
				name = tok.Name.Local
				data.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				data.Write(tok)
			}
		case xml.EndElement:
			if depth == 2 {
				doc[name] = data.String()
			}
			depth--
		}
	}
	if !sawRoot {
		return nil, errgo.WithCausef(nil, ErrEnvelope, "document has no root element")
	}
	return doc, nil
}
