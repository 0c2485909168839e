package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.io/infrasutra/spamwatch/internal/pagination"
	"github.io/infrasutra/spamwatch/internal/pipeline"
	"github.io/infrasutra/spamwatch/internal/stats"
	webassets "github.io/infrasutra/spamwatch/web"
)

type Server struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	mux      *http.ServeMux
	staticFS fs.FS
	staticOK bool
}

func NewServer(p *pipeline.Pipeline, logger *slog.Logger) *Server {
	staticFS, err := webassets.Dist()
	staticOK := err == nil
	if err != nil {
		logger.Warn("dashboard assets not embedded", "error", err)
	}
	server := &Server{
		pipeline: p,
		logger:   logger,
		staticFS: staticFS,
		staticOK: staticOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", server.handleStats)
	mux.HandleFunc("/api/events", server.handleEvents)
	mux.HandleFunc("/api/stream", server.handleStream)
	server.mux = mux
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") {
		s.mux.ServeHTTP(w, r)
		return
	}
	if path == "/health" {
		s.handleHealth(w, r)
		return
	}
	if path == "/ready" {
		s.handleReady(w, r)
		return
	}
	if path == "/metrics" {
		s.handleMetrics(w, r)
		return
	}

	s.serveStatic(w, r)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if !s.staticOK {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("dashboard assets missing"))
		return
	}

	cleaned := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if cleaned == "" {
		cleaned = "index.html"
	}

	if s.serveEmbeddedFile(w, r, cleaned) {
		return
	}

	if s.serveEmbeddedFile(w, r, "index.html") {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("dashboard assets missing"))
}

func (s *Server) serveEmbeddedFile(w http.ResponseWriter, r *http.Request, name string) bool {
	file, err := s.staticFS.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	if seeker, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name(), info.ModTime(), seeker)
		return true
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return false
	}
	reader := bytes.NewReader(data)
	http.ServeContent(w, r, info.Name(), info.ModTime(), reader)
	return true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondJSON(w, http.StatusOK, s.pipeline.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	params := pagination.GetPaginationParams(r.URL.Query(), pagination.WithDefaultLimit(50))

	events := s.pipeline.RecentEvents()
	if params.Sort == "oldest" {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}

	total := int32(len(events))
	start := params.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end < start {
		end = start
	}
	if end > total {
		end = total
	}

	response := struct {
		Events  []stats.Event `json:"events"`
		HasMore bool          `json:"hasMore"`
	}{
		Events:  events[start:end],
		HasMore: pagination.GetHasNext(params.Offset, params.Limit, total),
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.pipeline.Subscribe()
	defer s.pipeline.Unsubscribe(sub)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case payload := <-sub.Receive():
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ready")
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.pipeline.Snapshot()
	listening := 0
	if snap.SMTPStatus.Listening {
		listening = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "spamwatch_emails_total %d\n", snap.TotalEmails)
	fmt.Fprintf(&b, "spamwatch_spam_total %d\n", snap.SpamCount)
	fmt.Fprintf(&b, "spamwatch_smtp_listening %d\n", listening)
	fmt.Fprintf(&b, "spamwatch_observers %d\n", s.pipeline.Observers())
	s.respondText(w, http.StatusOK, b.String())
}

func (s *Server) respondText(w http.ResponseWriter, status int, payload string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}
