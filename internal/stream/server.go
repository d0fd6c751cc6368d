// Package stream serves the latest snapshots over HTTP and WebSocket.
//
// Every WebSocket client gets its own writer goroutine that reads from the
// delivery slots, so a slow client misses intermediate ticks instead of
// holding up the samplers or other clients.
package stream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/proctree"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types sent over /ws.
const (
	TypeSystem    = "system"
	TypeProcesses = "processes"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProcessesResponse is the body of GET /processes.
type ProcessesResponse struct {
	Timestamp time.Time   `json:"timestamp"`
	Sort      string      `json:"sort"`
	Groups    []GroupView `json:"groups"`
}

// GroupView is a process group as rendered by the API. Members are only
// included for expanded groups.
type GroupView struct {
	proctree.Group
	Label string `json:"label"`
}

// Options tunes the server. Zero values select defaults.
type Options struct {
	DisplayLimit int
	WriteWait    time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
}

// Server exposes the samplers' delivery slots.
type Server struct {
	system    *handoff.Slot[metrics.SystemSnapshot]
	processes *handoff.Slot[metrics.ProcessTable]
	opts      Options
	upgrader  websocket.Upgrader
	log       logger.Logger
}

// NewServer wraps the two slots; zero durations in opts take defaults.
func NewServer(system *handoff.Slot[metrics.SystemSnapshot], processes *handoff.Slot[metrics.ProcessTable], opts Options, log logger.Logger) *Server {
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		// Must be less than pongWait
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	return &Server{
		system:    system,
		processes: processes,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log: logger.OrNoop(log),
	}
}

// Handler returns the HTTP routes: /ws, /snapshot, /processes and
// /processes/{name}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/processes", s.handleProcesses)
	mux.HandleFunc("/processes/", s.handleProcessGroup)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, _, ok := s.system.Latest()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	spec, err := ParseSort(q.Get("sort"), q.Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	table, _, ok := s.processes.Latest()
	if !ok {
		http.Error(w, "no process sample yet", http.StatusServiceUnavailable)
		return
	}

	expanded := make(map[string]bool)
	for _, name := range strings.Split(q.Get("expand"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			expanded[name] = true
		}
	}

	groups := proctree.BuildWithLimit(table.Samples, spec, expanded, s.opts.DisplayLimit)
	s.writeJSON(w, ProcessesResponse{
		Timestamp: table.Timestamp,
		Sort:      spec.String(),
		Groups:    Views(groups),
	})
}

// handleProcessGroup returns one group with its members, ignoring the
// display limit.
func (s *Server) handleProcessGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/processes/")
	if name == "" {
		http.Error(w, "missing group name", http.StatusBadRequest)
		return
	}
	spec, err := ParseSort(r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	table, _, ok := s.processes.Latest()
	if !ok {
		http.Error(w, "no process sample yet", http.StatusServiceUnavailable)
		return
	}

	groups := proctree.BuildWithLimit(table.Samples, spec, map[string]bool{name: true}, 0)
	g, ok := proctree.Find(groups, name)
	if !ok {
		http.Error(w, "no such process group", http.StatusNotFound)
		return
	}
	s.writeJSON(w, Views([]proctree.Group{g})[0])
}

// ParseSort builds a SortSpec from the column and direction query values.
// An empty column keeps the default ordering.
func ParseSort(column, dir string) (proctree.SortSpec, error) {
	spec := proctree.DefaultSortSpec()
	if column == "" {
		return spec, nil
	}
	col, err := proctree.ParseColumn(strings.ToLower(column))
	if err != nil {
		return spec, err
	}
	dir = strings.ToLower(dir)
	if dir != "" && dir != "asc" && dir != "desc" {
		return spec, errors.New("dir must be asc or desc")
	}

	switch col {
	case proctree.ColumnNone:
		return spec, nil
	case proctree.ColumnName:
		spec = proctree.SortSpec{Active: proctree.ColumnName, Name: proctree.NameAsc}
		if dir == "desc" {
			spec.Name = proctree.NameDesc
		}
	default:
		spec = proctree.SortSpec{Active: col, Ascending: dir == "asc"}
	}
	return spec, nil
}

// Views wraps groups for JSON output.
func Views(groups []proctree.Group) []GroupView {
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		if !g.Expanded {
			g.Members = nil
		}
		views = append(views, GroupView{Group: g, Label: g.Label()})
	}
	return views
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("write response: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(r.Context(), conn, closed)
	s.log.Debug("websocket connection from %s closed (%d clients)", conn.RemoteAddr(), s.system.Subscribers())
}

// readPump discards client frames and keeps the read deadline fresh on pong.
// It closes closed when the connection fails.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, closed <-chan struct{}) {
	sysWake, cancelSys := s.system.Subscribe()
	defer cancelSys()
	procWake, cancelProc := s.processes.Subscribe()
	defer cancelProc()
	s.log.Debug("websocket connection established from %s (%d clients)", conn.RemoteAddr(), s.system.Subscribers())

	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()

	var sysSeq, procSeq uint64
	sendSystem := func() error {
		snap, seq, ok := s.system.Latest()
		if !ok || seq == sysSeq {
			return nil
		}
		sysSeq = seq
		return s.send(conn, Message{Type: TypeSystem, Data: snap})
	}
	sendProcesses := func() error {
		table, seq, ok := s.processes.Latest()
		if !ok || seq == procSeq {
			return nil
		}
		procSeq = seq
		return s.send(conn, Message{Type: TypeProcesses, Data: table})
	}

	if err := sendSystem(); err != nil {
		return
	}
	if err := sendProcesses(); err != nil {
		return
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-sysWake:
			err = sendSystem()
		case <-procWake:
			err = sendProcesses()
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			s.log.Debug("websocket write: %v", err)
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
