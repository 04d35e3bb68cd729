// Package client implements the tuber client side: an HTTP transport with
// codec negotiation, a batching call context with completion handles, and
// a descriptor-driven proxy resolver — grounded on
// original_source/tuber/client.py's SimpleContext/SimpleTuberObject
// (the synchronous client; tuber's Go client has no asyncio equivalent to
// port, so it follows the serial/"simple" half of the original).
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Transport sends batched requests to one tuberd server and decodes its
// response, the Go equivalent of SimpleContext's uri/accept_types/send/
// receive trio.
type Transport struct {
	BaseURL     string
	HTTPClient  *http.Client
	Codecs      *codec.Registry
	AcceptTypes []string // in preference order; defaults to the registry's media types
}

// NewTransport returns a Transport posting to baseURL+"/tuber".
func NewTransport(baseURL string, codecs *codec.Registry) *Transport {
	return &Transport{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Codecs:     codecs,
	}
}

// Send posts calls (a single request map or a batch slice) and returns the
// decoded response value (an *codec.OrderedMap for one item, []any for a
// batch).
func (t *Transport) Send(ctx context.Context, calls any, continueOnError bool) (any, error) {
	mediaType := "application/json"
	if len(t.Codecs.MediaTypes()) > 0 {
		mediaType = t.Codecs.MediaTypes()[0]
	}

	body, err := t.Codecs.Encode(mediaType, calls)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/tuber", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mediaType)

	accept := t.AcceptTypes
	if len(accept) == 0 {
		accept = t.Codecs.MediaTypes()
	}
	req.Header.Set("Accept", strings.Join(accept, ", "))
	if continueOnError {
		req.Header.Set("X-Tuber-Options", "continue-on-error")
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, tuberr.New(tuberr.KindRemoteError, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tuberr.New(tuberr.KindRemoteError, "reading response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, tuberr.New(tuberr.KindRemoteError, "request failed with status %d: %s", resp.StatusCode, string(raw))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mediaType
	}
	// strip any "; charset=..." suffix
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	if !t.Codecs.Has(contentType) {
		return nil, tuberr.New(tuberr.KindProtocolError, "unexpected response content type: %s", contentType)
	}

	decoded, err := t.Codecs.Decode(contentType, raw)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
