package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeBoardAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/message", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello from the board"}`))
	})
	mux.HandleFunc("GET /api/data", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"rec-2","name":"Grace","message":"Hi","createdAt":"2025-10-04T12:00:01Z"},{"id":"rec-1","name":"Ada","message":"Hello","createdAt":"2025-10-04T12:00:00Z"}]`))
	})
	mux.HandleFunc("POST /api/data", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"rec-3","name":"Ada","message":"Hello","createdAt":"2025-10-04T12:00:02Z"}`))
	})
	mux.HandleFunc("DELETE /api/data/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "rec-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Data not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"Data deleted successfully"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetArgs(append([]string{"--no-color", "--config", emptyConfig(t)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boardctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 2s\n"), 0o600))
	return path
}

func TestList(t *testing.T) {
	srv := fakeBoardAPI(t)
	out, err := run(t, "--api-url", srv.URL, "list")
	require.NoError(t, err)
	require.Contains(t, out, "NAME")
	require.Contains(t, out, "rec-2")
	require.Contains(t, out, "Grace")
	require.Less(t, bytes.Index([]byte(out), []byte("Grace")), bytes.Index([]byte(out), []byte("Ada")))
}

func TestAdd(t *testing.T) {
	srv := fakeBoardAPI(t)
	out, err := run(t, "--api-url", srv.URL, "add", "Ada", "Hello")
	require.NoError(t, err)
	require.Equal(t, "rec-3\n", out)

	_, err = run(t, "--api-url", srv.URL, "add", "only-name")
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	srv := fakeBoardAPI(t)
	out, err := run(t, "--api-url", srv.URL, "delete", "rec-1")
	require.NoError(t, err)
	require.Contains(t, out, "deleted rec-1")

	_, err = run(t, "--api-url", srv.URL, "rm", "rec-9")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Data not found")
}

func TestProbe(t *testing.T) {
	srv := fakeBoardAPI(t)
	out, err := run(t, "--api-url", srv.URL, "probe")
	require.NoError(t, err)
	require.Contains(t, out, "Success: hello from the board")

	out, err = run(t, "--api-url", "http://127.0.0.1:1", "--timeout", "200ms", "probe")
	require.ErrorIs(t, err, errProbeFailed)
	require.Contains(t, out, "Failed to connect to backend!")
}

func TestAPIURLFromEnvironment(t *testing.T) {
	srv := fakeBoardAPI(t)
	t.Setenv("BOARDCTL_API_URL", srv.URL)
	out, err := run(t, "probe")
	require.NoError(t, err)
	require.Contains(t, out, "Success")
}
