package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"ditools/internal/datasource"
)

// Remote is a data source served over HTTP.
type Remote struct {
	client *Client
	url    string
}

// NewRemote returns a Remote fetching url with c; a nil c gets a default
// client.
func NewRemote(c *Client, url string) *Remote {
	if c == nil {
		c = NewClient(Config{})
	}
	return &Remote{client: c, url: url}
}

// Open issues the GET and returns the response body. Any status other than
// 200 is an error.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %s", r.url, resp.Status)
	}
	return resp.Body, nil
}

var _ datasource.Source = (*Remote)(nil)
