package routerdata

import (
	"testing"

	qt "github.com/frankban/quicktest"
	errgo "gopkg.in/errgo.v1"
)

func TestParseDocument(t *testing.T) {
	c := qt.New(t)
	doc, err := parseDocument("<xml><rtcc>16:03:53 ME</rtcc><rssi>40;-80</rssi></xml>")
	c.Assert(err, qt.IsNil)
	c.Assert(doc, qt.DeepEquals, document{
		"rtcc": "16:03:53 ME",
		"rssi": "40;-80",
	})
}

func TestParseDocumentDuplicateKeyLastWins(t *testing.T) {
	c := qt.New(t)
	doc, err := parseDocument("<xml><rtcc>first</rtcc><rtcc>second</rtcc></xml>")
	c.Assert(err, qt.IsNil)
	c.Assert(doc["rtcc"], qt.Equals, "second")
}

func TestParseDocumentEmptyField(t *testing.T) {
	c := qt.New(t)
	doc, err := parseDocument("<xml><rtcc></rtcc></xml>")
	c.Assert(err, qt.IsNil)
	val, ok := doc["rtcc"]
	c.Assert(ok, qt.Equals, true)
	c.Assert(val, qt.Equals, "")
}

func TestParseDocumentNoRoot(t *testing.T) {
	c := qt.New(t)
	doc, err := parseDocument("just some text")
	c.Assert(doc, qt.IsNil)
	c.Assert(err, qt.ErrorMatches, "document has no root element")
	c.Assert(errgo.Cause(err), qt.Equals, ErrEnvelope)
}

func TestParseDocumentBadXML(t *testing.T) {
	c := qt.New(t)
	doc, err := parseDocument("<xml><rtcc>unterminated")
	c.Assert(doc, qt.IsNil)
	c.Assert(err, qt.ErrorMatches, "cannot parse document: .*")
	c.Assert(errgo.Cause(err), qt.Equals, ErrEnvelope)
}
