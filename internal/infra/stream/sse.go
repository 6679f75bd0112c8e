package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	domain "fanfilter/internal/domain/followers"
)

// Client opens server-sent event streams against the backend's filtering
// endpoint. It implements the StreamOpener port.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a stream client. The underlying http.Client carries no
// overall timeout: the stream is long-lived and ends when the server sends a
// terminal event or the context is cancelled.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

// Open issues the streaming request with the descriptor encoded as query
// parameters and returns a reader over the raw event frames.
func (c *Client) Open(ctx context.Context, req domain.FilterRequest) (domain.EventReader, error) {
	q := url.Values{}
	q.Set("user_request", req.Identifier)
	q.Set("user_prompt", req.Prompt)
	q.Set("count", strconv.Itoa(req.Count))
	if req.Cursor != "" {
		// Opaque: forwarded verbatim, never parsed or reformatted.
		q.Set("cursor", req.Cursor)
	}

	endpoint := c.BaseURL + "/api/v1/webscrape-stream?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream endpoint returned %s", resp.Status)
	}

	sc := bufio.NewScanner(resp.Body)
	// Batches can carry thousands of profiles in a single data line.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &reader{body: resp.Body, sc: sc}, nil
}

// reader parses the text/event-stream wire format: "event:" names a frame,
// one or more "data:" lines carry its payload, a blank line dispatches it.
type reader struct {
	body io.ReadCloser
	sc   *bufio.Scanner

	closeOnce sync.Once
	closeErr  error
}

func (r *reader) Next() (domain.Frame, error) {
	var name string
	var data []string

	for r.sc.Scan() {
		line := r.sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				return domain.Frame{Name: name, Data: []byte(strings.Join(data, "\n"))}, nil
			}
			// Blank line with no payload: keep-alive separator.
			name = ""
		case strings.HasPrefix(line, ":"):
			// Comment / heartbeat.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// id: and retry: fields are ignored; resumption is cursor-driven.
	}

	if err := r.sc.Err(); err != nil {
		return domain.Frame{}, err
	}
	if len(data) > 0 {
		// Stream ended flushing a final unterminated frame.
		return domain.Frame{Name: name, Data: []byte(strings.Join(data, "\n"))}, nil
	}
	return domain.Frame{}, io.EOF
}

// Close is idempotent; calling it twice is safe.
func (r *reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}
