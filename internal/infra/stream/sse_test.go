package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domain "fanfilter/internal/domain/followers"
)

func sseServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpen_EncodesRequestAsQueryParams(t *testing.T) {
	var got map[string]string
	srv := sseServer(t, "", func(r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"path":         r.URL.Path,
			"user_request": q.Get("user_request"),
			"user_prompt":  q.Get("user_prompt"),
			"count":        q.Get("count"),
			"cursor":       q.Get("cursor"),
			"accept":       r.Header.Get("Accept"),
		}
	})

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{
		Identifier: "target",
		Prompt:     "crypto builders",
		Count:      250,
		Cursor:     "opaque==token",
	})
	require.NoError(t, err)
	defer reader.Close()

	require.Equal(t, "/api/v1/webscrape-stream", got["path"])
	require.Equal(t, "target", got["user_request"])
	require.Equal(t, "crypto builders", got["user_prompt"])
	require.Equal(t, "250", got["count"])
	require.Equal(t, "opaque==token", got["cursor"])
	require.Equal(t, "text/event-stream", got["accept"])
}

func TestOpen_OmitsEmptyCursor(t *testing.T) {
	var hasCursor bool
	srv := sseServer(t, "", func(r *http.Request) {
		_, hasCursor = r.URL.Query()["cursor"]
	})

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	defer reader.Close()
	require.False(t, hasCursor)
}

func TestOpen_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	_, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestNext_ParsesNamedAndDefaultFrames(t *testing.T) {
	body := "data: {\"total_fetched\":5}\n\n" +
		"event: cursor\ndata: {\"cursor\":\"abc\"}\n\n" +
		"event: done\ndata: {\"count\":0,\"followers\":[]}\n\n"
	srv := sseServer(t, body, nil)

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	defer reader.Close()

	f, err := reader.Next()
	require.NoError(t, err)
	require.Empty(t, f.Name)
	require.JSONEq(t, `{"total_fetched":5}`, string(f.Data))

	f, err = reader.Next()
	require.NoError(t, err)
	require.Equal(t, domain.EventCursor, f.Name)
	require.JSONEq(t, `{"cursor":"abc"}`, string(f.Data))

	f, err = reader.Next()
	require.NoError(t, err)
	require.Equal(t, domain.EventDone, f.Name)

	_, err = reader.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestNext_SkipsCommentsAndKeepAlives(t *testing.T) {
	body := ": heartbeat\n\n" +
		": another\n" +
		"data: {\"cursor\":\"x\"}\n\n"
	srv := sseServer(t, body, nil)

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	defer reader.Close()

	f, err := reader.Next()
	require.NoError(t, err)
	require.JSONEq(t, `{"cursor":"x"}`, string(f.Data))
}

func TestNext_JoinsMultilineData(t *testing.T) {
	body := "data: line-one\ndata: line-two\n\n"
	srv := sseServer(t, body, nil)

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	defer reader.Close()

	f, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, "line-one\nline-two", string(f.Data))
}

func TestNext_FlushesUnterminatedTrailingFrame(t *testing.T) {
	body := "event: done\ndata: {\"count\":0,\"followers\":[]}"
	srv := sseServer(t, body, nil)

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	defer reader.Close()

	f, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, domain.EventDone, f.Name)

	_, err = reader.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestClose_Idempotent(t *testing.T) {
	srv := sseServer(t, "", nil)

	c := NewClient(srv.URL)
	reader, err := c.Open(context.Background(), domain.FilterRequest{Identifier: "t", Count: 10})
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())
}
