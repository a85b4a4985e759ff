package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/shyim/backup-pruner/internal/pruner"
	"github.com/shyim/backup-pruner/internal/report"
)

// DefaultSocketPath is the default Unix socket path
const DefaultSocketPath = "/var/run/backup-pruner.sock"

// Runner executes prune runs on demand
type Runner interface {
	Run(ctx context.Context, dryRun bool) (*pruner.Result, error)
	Status() pruner.Status
}

// PruneResponse is the response for a prune trigger request
type PruneResponse struct {
	Success bool             `json:"success"`
	DryRun  bool             `json:"dryRun"`
	Failed  int              `json:"failed"`
	Groups  []report.Summary `json:"groups,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// StatusResponse is the response for a status request
type StatusResponse struct {
	Success bool           `json:"success"`
	Status  *pruner.Status `json:"status,omitempty"`
	NextRun time.Time      `json:"nextRun,omitzero"`
	Error   string         `json:"error,omitempty"`
}

// Server provides HTTP API over Unix socket
type Server struct {
	socketPath string
	server     *http.Server
	runner     Runner
	nextRun    func() time.Time
	runTimeout time.Duration
}

// NewServer creates a new API server
func NewServer(socketPath string, runner Runner) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	s := &Server{
		socketPath: socketPath,
		runner:     runner,
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: time.Hour, // Deleting many remote backups can take a while
	}
	return s
}

// SetNextRun sets the function reporting the next scheduled run
func (s *Server) SetNextRun(nextRun func() time.Time) {
	s.nextRun = nextRun
}

// SetRunTimeout bounds runs triggered through the API. Zero means no limit.
func (s *Server) SetRunTimeout(d time.Duration) {
	s.runTimeout = d
}

// Handler returns the HTTP handler serving the API endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Prune trigger endpoint: POST /prune?dry-run=true
	mux.HandleFunc("/prune", s.handlePrune)

	// Status endpoint: GET /status
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// Start begins serving API endpoints on Unix socket
func (s *Server) Start() error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(s.socketPath, 0660); err != nil {
		_ = listener.Close()
		return err
	}

	slog.Info("starting API server", "socket", s.socketPath)
	err = s.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		_ = os.RemoveAll(s.socketPath)
	}
	return err
}

// Shutdown gracefully stops the server. A server shut down before Start
// never accepts connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	// Clean up socket file
	_ = os.RemoveAll(s.socketPath)

	return err
}

// SocketPath returns the socket path
func (s *Server) SocketPath() string {
	return s.socketPath
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handlePrune runs the pruner immediately
// POST /prune?dry-run=true
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, PruneResponse{Error: "method not allowed, use POST"})
		return
	}

	dryRun := false
	if v := r.URL.Query().Get("dry-run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, PruneResponse{Error: "invalid dry-run value: " + v})
			return
		}
		dryRun = parsed
	}

	slog.Info("prune triggered via API", "dry_run", dryRun)

	// The run outlives a disconnecting client
	ctx := context.WithoutCancel(r.Context())
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, dryRun)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pruner.ErrRunInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, PruneResponse{DryRun: dryRun, Error: err.Error()})
		return
	}

	resp := PruneResponse{
		Success: true,
		DryRun:  result.DryRun,
		Failed:  result.Failed(),
		Groups:  result.Summaries(),
		Message: "prune completed successfully",
	}
	if resp.Failed > 0 {
		resp.Message = "prune completed with failed deletions"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus reports the state of the last run
// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, StatusResponse{Error: "method not allowed, use GET"})
		return
	}

	status := s.runner.Status()
	resp := StatusResponse{
		Success: true,
		Status:  &status,
	}
	if s.nextRun != nil {
		resp.NextRun = s.nextRun()
	}
	writeJSON(w, http.StatusOK, resp)
}
