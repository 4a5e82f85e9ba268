// Package webconnect implements the HTTP client used to read the
// telemetry documents from an MSunPV router's wifi module.
package webconnect

import (
	"context"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	errgo "gopkg.in/errgo.v1"
	retry "gopkg.in/retry.v1"

	"github.com/ardtek/msunpv/routerdata"
)

// ErrConnection is the cause of errors returned when the router
// cannot be reached or replies with its FileNotFound marker.
var ErrConnection = errgo.New("cannot connect to router")

const defaultTimeout = 10 * time.Second

// Client reads documents from a single router.
type Client struct {
	baseURL string
	client  *http.Client
}

// New returns a client for the router at the given address, which may
// be a host name, a host:port pair or an http URL.
func New(addr string) (*Client, error) {
	if addr == "" {
		return nil, errgo.New("empty router address")
	}
	addr = strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	if _, err := url.Parse(addr); err != nil {
		return nil, errgo.Notef(err, "bad router address")
	}
	return &Client{
		baseURL: addr,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// GetStatus fetches and decodes the router's live status document.
// Errors reaching the router have the cause ErrConnection; a reply
// that isn't a well-formed document has the cause
// routerdata.ErrEnvelope.
func (c *Client) GetStatus(ctx context.Context) (*routerdata.Status, error) {
	body, err := c.get(ctx, "status.xml")
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(ErrConnection))
	}
	status, err := routerdata.DecodeStatus(body)
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(routerdata.ErrEnvelope))
	}
	return status, nil
}

// GetIndex fetches and decodes the router's index document, with the
// same error causes as GetStatus.
func (c *Client) GetIndex(ctx context.Context) (*routerdata.Index, error) {
	body, err := c.get(ctx, "index.xml")
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(ErrConnection))
	}
	index, err := routerdata.DecodeIndex(body)
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(routerdata.ErrEnvelope))
	}
	return index, nil
}

// The router's wifi module sometimes drops an incoming connection
// outright; it can need a couple of attempts before it replies.
var retryStrategy = retry.LimitCount(3, retry.Exponential{
	Initial:  100 * time.Millisecond,
	Factor:   2,
	MaxDelay: time.Second,
})

// get fetches one document, retrying when the router drops the
// connection. The body is returned undecoded: the document decoders
// handle the router's ISO-8859-1 encoding themselves.
func (c *Client) get(ctx context.Context, page string) (string, error) {
	var lastErr error
	for a := retry.StartWithCancel(retryStrategy, nil, ctx.Done()); a.Next(); {
		body, err := c.getOnce(ctx, page)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isDisconnect(err) {
			break
		}
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return "", errgo.WithCausef(lastErr, ErrConnection, "cannot fetch %s", page)
}

func (c *Client) getOnce(ctx context.Context, page string) (string, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/"+page, nil)
	if err != nil {
		return "", errgo.Mask(err)
	}
	req = req.WithContext(ctx)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errgo.Newf("error status fetching %s: %v", page, resp.Status)
	}
	if string(data) == "FileNotFound" {
		// The router serves this literal body for pages it
		// doesn't know about.
		return "", errgo.Newf("router reports %s missing", page)
	}
	return string(data), nil
}

// isDisconnect reports whether err looks like the router dropping the
// connection before replying, which is worth a retry.
func isDisconnect(err error) bool {
	if uerr, ok := err.(*url.Error); ok {
		err = uerr.Err
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}
	if _, ok := err.(*net.OpError); ok {
		return true
	}
	return false
}
