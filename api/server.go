// Package api serves a small read-only HTTP surface describing the zipper's
// current routing table and per-sfn health, for operators and dashboards. It
// adapts http_server.go's Start/Stop/handler shape, switching its bare
// net/http.ServeMux for github.com/gorilla/mux (as used elsewhere in the
// broader example pack) so routes can carry path variables.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yomorun/yomo/limiter"
	"github.com/yomorun/yomo/status"
)

// Server is the admin HTTP API. Construct with New and call Start/Stop.
type Server struct {
	listenAddr string
	monitor    *status.Monitor
	limiters   func(name string) (*limiter.Limiter, bool)

	httpSrv *http.Server
	ln      net.Listener
}

// New creates an admin API server bound to listenAddr. limiters may be nil
// if bandwidth limiting is disabled.
func New(listenAddr string, monitor *status.Monitor, limiters func(name string) (*limiter.Limiter, bool)) *Server {
	return &Server{listenAddr: listenAddr, monitor: monitor, limiters: limiters}
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/sfns", s.handleSfns).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sfns/{name}", s.handleSfn).Methods(http.MethodGet)

	h := &http.Server{Addr: s.listenAddr, Handler: r}
	s.httpSrv = h

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		log.Printf("api: starting admin HTTP server on %s", s.listenAddr)
		if err := h.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("api: http server error: %v", err)
		}
	}()

	return nil
}

// Stop attempts a graceful shutdown with a 5s timeout.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

type sfnDTO struct {
	Name          string    `json:"name"`
	Connected     bool      `json:"connected"`
	LastSeen      time.Time `json:"last_seen"`
	StreamsActive int64     `json:"streams_active"`
	StreamsTotal  int64     `json:"streams_total"`
	BytesIn       int64     `json:"bytes_in"`
	BytesOut      int64     `json:"bytes_out"`
	MaxRateBps    int64     `json:"max_rate_bytes_per_sec,omitempty"`
	ActiveRateBps int64     `json:"active_rate_bytes_per_sec,omitempty"`
}

func (s *Server) toDTO(snap status.Snapshot) sfnDTO {
	dto := sfnDTO{
		Name:          snap.Name,
		Connected:     snap.Connected,
		LastSeen:      snap.LastSeen,
		StreamsActive: snap.StreamsActive,
		StreamsTotal:  snap.StreamsTotal,
		BytesIn:       snap.BytesIn,
		BytesOut:      snap.BytesOut,
	}
	if s.limiters != nil {
		if l, ok := s.limiters(snap.Name); ok {
			dto.MaxRateBps = l.GetMaxRate()
			dto.ActiveRateBps = l.GetActiveRate()
		}
	}
	return dto
}

func (s *Server) handleSfns(w http.ResponseWriter, r *http.Request) {
	snaps := s.monitor.All()
	list := make([]sfnDTO, 0, len(snaps))
	for _, snap := range snaps {
		list = append(list, s.toDTO(snap))
	}
	writeJSON(w, list)
}

func (s *Server) handleSfn(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	snap, ok := s.monitor.Snapshot(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, s.toDTO(snap))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("api: encode error: %v", err)
	}
}
