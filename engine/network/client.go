// Package network fetches catalogs and bundles over HTTP.
package network

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// ClientOptions configures NewClient
type ClientOptions struct {
	UserAgent string
	Accept    string
	Timeout   time.Duration
	// Base is the transport requests finally go through. Nil means
	// http.DefaultTransport.
	Base http.RoundTripper
}

// NewClient returns a client that sends the configured identification
// headers and transparently decodes gzip and zstd responses.
func NewClient(opts ClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &headerTransport{
			userAgent: opts.UserAgent,
			accept:    opts.Accept,
			next: gzhttp.Transport(base,
				gzhttp.TransportEnableGzip(true),
				gzhttp.TransportEnableZstd(true)),
		},
	}
}

type headerTransport struct {
	userAgent string
	accept    string
	next      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.accept != "" {
		req.Header.Set("Accept", t.accept)
	}
	return t.next.RoundTrip(req)
}
