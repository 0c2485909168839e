package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.io/infrasutra/spamwatch/internal/classifier"
	"github.io/infrasutra/spamwatch/internal/pipeline"
	"github.io/infrasutra/spamwatch/internal/sse"
	"github.io/infrasutra/spamwatch/internal/stats"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline() *pipeline.Pipeline {
	return pipeline.New(classifier.RuleScorer{}, stats.New("127.0.0.1", 1025), sse.NewHub(), discardLogger())
}

func deliverSubject(p *pipeline.Pipeline, subject string) {
	raw := fmt.Sprintf("From: a@corp.test\r\nSubject: %s\r\n\r\nplain body\r\n", subject)
	p.Deliver("a@corp.test", []string{"b@inbox.test"}, []byte(raw))
}

func getBody(t *testing.T, srv *Server, target string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec, body
}

func TestStatsEndpoint(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "free money, claim prize now!!!")
	deliverSubject(p, "meeting minutes")
	srv := NewServer(p, discardLogger())

	rec, body := getBody(t, srv, "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, uint64(2), snap.TotalEmails)
	assert.Equal(t, uint64(1), snap.SpamCount)
	require.Len(t, snap.TopDomains, 1)
	assert.Equal(t, "corp.test", snap.TopDomains[0].Domain)
	assert.Equal(t, uint64(2), snap.TopDomains[0].Count)
}

func TestStatsRejectsPost(t *testing.T) {
	srv := NewServer(newTestPipeline(), discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stats", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type eventsResponse struct {
	Events  []stats.Event `json:"events"`
	HasMore bool          `json:"hasMore"`
}

func TestEventsEndpointNewestFirst(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "first")
	deliverSubject(p, "second")
	deliverSubject(p, "third")
	srv := NewServer(p, discardLogger())

	rec, body := getBody(t, srv, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Events, 3)
	assert.Equal(t, "third", resp.Events[0].Subject)
	assert.Equal(t, "first", resp.Events[2].Subject)
	assert.False(t, resp.HasMore)
}

func TestEventsEndpointPagination(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "first")
	deliverSubject(p, "second")
	deliverSubject(p, "third")
	srv := NewServer(p, discardLogger())

	_, body := getBody(t, srv, "/api/events?limit=2")
	var page1 eventsResponse
	require.NoError(t, json.Unmarshal(body, &page1))
	require.Len(t, page1.Events, 2)
	assert.Equal(t, "third", page1.Events[0].Subject)
	assert.True(t, page1.HasMore)

	_, body = getBody(t, srv, "/api/events?limit=2&page=2")
	var page2 eventsResponse
	require.NoError(t, json.Unmarshal(body, &page2))
	require.Len(t, page2.Events, 1)
	assert.Equal(t, "first", page2.Events[0].Subject)
	assert.False(t, page2.HasMore)
}

func TestEventsEndpointOldestSort(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "first")
	deliverSubject(p, "second")
	srv := NewServer(p, discardLogger())

	_, body := getBody(t, srv, "/api/events?sort=oldest")
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "first", resp.Events[0].Subject)
}

func TestEventsEndpointEmpty(t *testing.T) {
	srv := NewServer(newTestPipeline(), discardLogger())

	_, body := getBody(t, srv, "/api/events")
	assert.Contains(t, string(body), `"events":[]`)
}

func TestEventsEndpointSurvivesOversizedPaging(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "first")
	deliverSubject(p, "second")
	srv := NewServer(p, discardLogger())

	// A limit beyond int32 falls back to the default window.
	rec, body := getBody(t, srv, "/api/events?limit=6442450944")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Events, 2)

	// A page far past the history yields an empty window.
	rec, body = getBody(t, srv, "/api/events?page=21474838&limit=100")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = eventsResponse{}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Empty(t, resp.Events)
	assert.False(t, resp.HasMore)

	// Same shape when the page number itself is out of range.
	rec, body = getBody(t, srv, "/api/events?page=9999999999")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = eventsResponse{}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Events, 2)
}

func requireLine(t *testing.T, reader *bufio.Reader, want string) {
	t.Helper()
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, want, strings.TrimRight(line, "\n"))
}

func readDataFrame(t *testing.T, reader *bufio.Reader) map[string]any {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		return frame
	}
}

func TestStreamSendsReadyInitThenEvents(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "earlier")
	srv := NewServer(p, discardLogger())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(ts.URL + "/api/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	requireLine(t, reader, "event: ready")
	requireLine(t, reader, "data: {}")
	requireLine(t, reader, "")

	initFrame := readDataFrame(t, reader)
	assert.Equal(t, "init", initFrame["type"])
	summary, ok := initFrame["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), summary["total_emails"])

	// The subscription is registered before the ready preamble is written,
	// so this delivery is guaranteed to reach the stream.
	deliverSubject(p, "free money, claim prize now!!!")

	eventFrame := readDataFrame(t, reader)
	assert.Equal(t, "email_event", eventFrame["type"])
	event, ok := eventFrame["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "free money, claim prize now!!!", event["subject"])
	assert.Equal(t, true, event["is_spam"])
}

func TestStreamUnsubscribesOnDisconnect(t *testing.T) {
	p := newTestPipeline()
	srv := NewServer(p, discardLogger())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stream")
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	requireLine(t, reader, "event: ready")
	require.Equal(t, 1, p.Observers())

	resp.Body.Close()

	require.Eventually(t, func() bool {
		p.Deliver("x@y.test", nil, []byte("Subject: nudge\r\n\r\nbody\r\n"))
		return p.Observers() == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHealthAndReady(t *testing.T) {
	srv := NewServer(newTestPipeline(), discardLogger())

	rec, body := getBody(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", string(body))

	rec, body = getBody(t, srv, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", string(body))
}

func TestMetricsCounters(t *testing.T) {
	p := newTestPipeline()
	deliverSubject(p, "free money, claim prize now!!!")
	deliverSubject(p, "weekly report")
	sub := p.Subscribe()
	defer p.Unsubscribe(sub)
	srv := NewServer(p, discardLogger())

	rec, body := getBody(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	text := string(body)
	assert.Contains(t, text, "spamwatch_emails_total 2\n")
	assert.Contains(t, text, "spamwatch_spam_total 1\n")
	assert.Contains(t, text, "spamwatch_smtp_listening 0\n")
	assert.Contains(t, text, "spamwatch_observers 1\n")
}

func TestServesDashboard(t *testing.T) {
	srv := NewServer(newTestPipeline(), discardLogger())

	rec, body := getBody(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "SPAMWATCH")

	// Unknown paths fall back to the dashboard shell.
	rec, body = getBody(t, srv, "/some/client/route")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "SPAMWATCH")
}

func TestUnknownAPIRouteIs404(t *testing.T) {
	srv := NewServer(newTestPipeline(), discardLogger())

	rec, _ := getBody(t, srv, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
