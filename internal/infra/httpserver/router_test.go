package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appinsights "fanfilter/internal/application/insights"
	appsessions "fanfilter/internal/application/sessions"
	domain "fanfilter/internal/domain/followers"
)

type stubReader struct {
	frames []domain.Frame
}

func (r *stubReader) Next() (domain.Frame, error) {
	if len(r.frames) == 0 {
		return domain.Frame{}, io.EOF
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	return f, nil
}

func (r *stubReader) Close() error { return nil }

type stubOpener struct {
	frames []domain.Frame
}

func (o *stubOpener) Open(context.Context, domain.FilterRequest) (domain.EventReader, error) {
	return &stubReader{frames: append([]domain.Frame(nil), o.frames...)}, nil
}

func newTestServer(t *testing.T, frames []domain.Frame) (*httptest.Server, *appsessions.Service) {
	t.Helper()
	svc := appsessions.NewService(&stubOpener{frames: frames}, nil, nil, nil, nil)
	srv := httptest.NewServer(NewRouter(svc, appinsights.NewService(nil), nil))
	t.Cleanup(srv.Close)
	return srv, svc
}

func startJob(t *testing.T, srv *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func waitFinished(t *testing.T, svc *appsessions.Service, id string) {
	t.Helper()
	sess, err := svc.Get(domain.RunID(id))
	require.NoError(t, err)
	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func completedFrames() []domain.Frame {
	return []domain.Frame{
		{Data: []byte(`{"total_fetched":2,"followers":[{"user_id":"1","screen_name":"alice","ai_analysis_notes":"posts daily"},{"user_id":"2","screen_name":"bob"}]}`)},
		{Name: domain.EventDone, Data: []byte(`{"count":2,"followers":[]}`)},
	}
}

func TestStartJob_AcceptsNumericAndStringCount(t *testing.T) {
	srv, svc := newTestServer(t, completedFrames())

	id := startJob(t, srv, `{"identifier":"@target","count":100}`)
	waitFinished(t, svc, id)

	id = startJob(t, srv, `{"identifier":"@target","count":"100"}`)
	waitFinished(t, svc, id)
}

func TestStartJob_ValidationMapsToBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, body := range []string{
		`{"identifier":"a b","count":10}`,
		`{"identifier":"target","count":"abc"}`,
		`{"identifier":"target","count":5000}`,
		`{"identifier":"target","count":12.5}`,
	} {
		resp, err := http.Post(srv.URL+"/v1/jobs", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestSnapshot_ReturnsMergedRecords(t *testing.T) {
	srv, svc := newTestServer(t, completedFrames())
	id := startJob(t, srv, `{"identifier":"target","count":10}`)
	waitFinished(t, svc, id)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status      string          `json:"status"`
		MergedCount int             `json:"merged_count"`
		Records     []domain.Record `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "completed", out.Status)
	require.Equal(t, 2, out.MergedCount)
	require.Equal(t, "alice", out.Records[0].ScreenName)
}

func TestSnapshot_UnknownJobIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/jobs/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport_ServesCSVAttachment(t *testing.T) {
	srv, svc := newTestServer(t, completedFrames())
	id := startJob(t, srv, `{"identifier":"@target","count":10}`)
	waitFinished(t, svc, id)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + id + "/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "target_analyzed_followers.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Len(t, strings.Split(string(body), "\n"), 3)
}

func TestExport_EmptyJobIsConflict(t *testing.T) {
	srv, svc := newTestServer(t, []domain.Frame{
		{Name: domain.EventDone, Data: []byte(`{"count":0,"followers":[]}`)},
	})
	id := startJob(t, srv, `{"identifier":"target","count":10}`)
	waitFinished(t, svc, id)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + id + "/export")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancel_ReturnsTerminalStatus(t *testing.T) {
	srv, svc := newTestServer(t, completedFrames())
	id := startJob(t, srv, `{"identifier":"target","count":10}`)
	waitFinished(t, svc, id)

	resp, err := http.Post(srv.URL+"/v1/jobs/"+id+"/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "completed", out.Status)
}

func TestDigest_DisabledClientIs503(t *testing.T) {
	srv, svc := newTestServer(t, completedFrames())
	id := startJob(t, srv, `{"identifier":"target","count":10}`)
	waitFinished(t, svc, id)

	resp, err := http.Post(srv.URL+"/v1/jobs/"+id+"/digest", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
