package mapsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// httpTransport is the production httpGetter, backed by an *http.Client.
// A nil client selects http.DefaultClient, which is what every constructor
// in this package passes.
type httpTransport struct {
	client *http.Client
}

func newHTTPTransport(client *http.Client) *httpTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTransport{client: client}
}

func (t *httpTransport) get(ctx context.Context, url, etag, lastModified string, redirectLimit int) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	client := t.client
	if redirectLimit >= 0 {
		limited := *client
		limited.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= redirectLimit {
				return http.ErrUseLastResponse
			}
			return nil
		}
		client = &limited
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, false, err
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		resp.Body.Close()
		return nil, true, nil
	case http.StatusOK:
		return resp.Body, false, nil
	default:
		resp.Body.Close()
		return nil, false, fmt.Errorf("mapsource: unexpected status %s for %s", resp.Status, url)
	}
}
