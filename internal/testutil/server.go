// Package testutil provides a stub flowmark server and store helpers for
// tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sbrink/flowdash/internal/api"
)

// Server is an in-memory flowmark server backed by httptest. State fields
// may be mutated between requests; all access is mutex-guarded.
type Server struct {
	t  *testing.T
	mu sync.Mutex

	General  api.GeneralSettings
	Playback api.PlaybackSettings
	Limits   api.LimitSettings
	Streams  []api.Stream
	Samples  []api.Sample

	// FailPuts makes every settings update respond 500.
	FailPuts bool

	gets map[string]int
	puts map[string]int

	httpSrv *httptest.Server
}

// NewServer starts a stub server with sensible fixture data. It is shut
// down automatically when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		t: t,
		General: api.GeneralSettings{
			ServerName: "flowmark-test",
			APIPort:    8089,
		},
		Playback: api.PlaybackSettings{
			Delays: api.Delays{EpisodeEnd: 600, MovieEnd: 1800},
		},
		Limits: api.LimitSettings{
			UploadKbps:    50000,
			DownloadKbps:  200000,
			PerStreamKbps: 8000,
		},
		gets: make(map[string]int),
		puts: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/settings/general", s.settingsHandler(&s.General))
	mux.HandleFunc("/api/settings/playback", s.settingsHandler(&s.Playback))
	mux.HandleFunc("/api/settings/limits", s.settingsHandler(&s.Limits))
	mux.HandleFunc("/api/streams", s.streamsHandler)
	mux.HandleFunc("/api/bandwidth/history", s.historyHandler)

	s.httpSrv = httptest.NewServer(mux)
	t.Cleanup(s.httpSrv.Close)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.httpSrv.URL
}

// GetCount returns how many GETs the given settings section has served.
func (s *Server) GetCount(section string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[section]
}

// PutCount returns how many PUTs the given settings section has served.
func (s *Server) PutCount(section string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[section]
}

// settingsHandler serves GET and PUT for one settings section. target must
// be a pointer into the server state.
func (s *Server) settingsHandler(target any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		section := r.URL.Path[len("/api/settings/"):]

		switch r.Method {
		case http.MethodGet:
			s.gets[section]++
			writeJSON(w, target)

		case http.MethodPut:
			s.puts[section]++
			if s.FailPuts {
				http.Error(w, "simulated failure", http.StatusInternalServerError)
				return
			}
			if err := json.NewDecoder(r.Body).Decode(target); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) streamsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streams := s.Streams
	if streams == nil {
		streams = []api.Stream{}
	}
	writeJSON(w, streams)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := s.Samples
	if samples == nil {
		samples = []api.Sample{}
	}
	writeJSON(w, samples)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
