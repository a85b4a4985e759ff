package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shyim/backup-pruner/internal/pruner"
	"github.com/shyim/backup-pruner/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result *pruner.Result
	err    error
	dryRun bool
	status pruner.Status
	ctx    context.Context
}

func (f *fakeRunner) Run(ctx context.Context, dryRun bool) (*pruner.Result, error) {
	f.ctx = ctx
	f.dryRun = dryRun
	return f.result, f.err
}

func (f *fakeRunner) Status() pruner.Status {
	return f.status
}

func doRequest(t *testing.T, s *Server, method, target string, v any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
	return rec.Code
}

func TestHandlePrune(t *testing.T) {
	runner := &fakeRunner{result: &pruner.Result{
		DryRun: true,
		Groups: []pruner.GroupResult{{Name: "db", Summary: report.Summary{Group: "db", Keep: 2, Delete: 1}}},
	}}
	s := NewServer("", runner)

	var resp PruneResponse
	code := doRequest(t, s, http.MethodPost, "/prune?dry-run=true", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, runner.dryRun)
	assert.True(t, resp.Success)
	assert.True(t, resp.DryRun)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "db", resp.Groups[0].Group)
	assert.Equal(t, "prune completed successfully", resp.Message)
}

func TestHandlePrune_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		err    error
		code   int
	}{
		{name: "wrong method", method: http.MethodGet, target: "/prune", code: http.StatusMethodNotAllowed},
		{name: "invalid dry run", method: http.MethodPost, target: "/prune?dry-run=maybe", code: http.StatusBadRequest},
		{name: "busy", method: http.MethodPost, target: "/prune", err: pruner.ErrRunInProgress, code: http.StatusConflict},
		{name: "run failed", method: http.MethodPost, target: "/prune", err: errors.New("discovery failed"), code: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer("", &fakeRunner{err: tc.err})

			var resp PruneResponse
			code := doRequest(t, s, tc.method, tc.target, &resp)

			assert.Equal(t, tc.code, code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleStatus(t *testing.T) {
	next := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC)
	s := NewServer("", &fakeRunner{status: pruner.Status{Runs: 3, Failed: 1}})
	s.SetNextRun(func() time.Time { return next })

	var resp StatusResponse
	code := doRequest(t, s, http.MethodGet, "/status", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Status)
	assert.Equal(t, 3, resp.Status.Runs)
	assert.Equal(t, 1, resp.Status.Failed)
	assert.True(t, next.Equal(resp.NextRun))

	code = doRequest(t, s, http.MethodPost, "/status", &resp)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestServer_UnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "pruner")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "api.sock")
	s := NewServer(socket, &fakeRunner{status: pruner.Status{Runs: 1}})
	assert.Equal(t, socket, s.SocketPath())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "unix", socket)
		},
	}}

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get("http://localhost/status")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, <-errCh, http.ErrServerClosed)

	_, statErr := os.Stat(socket)
	assert.True(t, os.IsNotExist(statErr), "socket file is removed on shutdown")
}

func TestHandlePrune_RunOutlivesClient(t *testing.T) {
	runner := &fakeRunner{result: &pruner.Result{}}
	s := NewServer("", runner)
	s.SetRunTimeout(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prune", nil).WithContext(ctx)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, runner.ctx)
	assert.NoError(t, runner.ctx.Err(), "client cancellation does not reach the run")

	deadline, ok := runner.ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestHandlePrune_NoRunTimeout(t *testing.T) {
	runner := &fakeRunner{result: &pruner.Result{}}
	s := NewServer("", runner)

	var resp PruneResponse
	code := doRequest(t, s, http.MethodPost, "/prune", &resp)

	assert.Equal(t, http.StatusOK, code)
	_, ok := runner.ctx.Deadline()
	assert.False(t, ok)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	dir, err := os.MkdirTemp("", "pruner")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "api.sock")
	s := NewServer(socket, &fakeRunner{})

	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, s.Start(), http.ErrServerClosed)

	_, dialErr := net.Dial("unix", socket)
	assert.Error(t, dialErr)
	assert.NoFileExists(t, socket)
}
