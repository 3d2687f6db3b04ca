package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/cardcalc/internal/manager"
	"github.com/duynguyendang/cardcalc/pkg/card"
	"github.com/duynguyendang/cardcalc/pkg/datalog"
	"github.com/duynguyendang/cardcalc/pkg/solver"
)

func setupTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeCard := func(rel, content string) {
		dir := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, card.MetadataFile), []byte(content), 0o644))
	}
	writeCard("cardRoot/root1", "cardtype: epic\nsummary: Root\nworkflowstate: open\n")
	writeCard("cardRoot/root1/c/childA", "cardtype: task\nsummary: Child A\nworkflowstate: open\n")
	return root
}

// stubSolverConfig points the solver at a shell script that prints one
// derived fact and exits with the success bitfield.
func stubSolverConfig(t *testing.T) solver.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub solver scripts need a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "clingo")
	script := "#!/bin/sh\nprintf 'field(childA,\"effort\",\"5\").\\nSATISFIABLE\\n'\nexit 30\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))
	return solver.Config{Binary: stub, Timeout: 5 * time.Second}
}

func TestHealthCheck(t *testing.T) {
	srv := NewServer(manager.NewProjectManager(solver.DefaultConfig()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerate(t *testing.T) {
	root := setupTestProject(t)
	srv := NewServer(manager.NewProjectManager(solver.DefaultConfig()))

	w := httptest.NewRecorder()
	body := `{"project": ` + jsonQuote(root) + `}`
	req, _ := http.NewRequest("POST", "/v1/generate", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.FileExists(t, filepath.Join(root, ".calc", "main.lp"))
	assert.FileExists(t, filepath.Join(root, ".calc", "cards", "childA.lp"))
}

func TestGenerateMissingProject(t *testing.T) {
	srv := NewServer(manager.NewProjectManager(solver.DefaultConfig()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/generate", strings.NewReader(`{}`))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateUnknownProject(t *testing.T) {
	srv := NewServer(manager.NewProjectManager(solver.DefaultConfig()))

	w := httptest.NewRecorder()
	body := `{"project": ` + jsonQuote(t.TempDir()) + `}`
	req, _ := http.NewRequest("POST", "/v1/generate", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun(t *testing.T) {
	root := setupTestProject(t)
	srv := NewServer(manager.NewProjectManager(stubSolverConfig(t)))

	// Generate first, then query.
	w := httptest.NewRecorder()
	body := `{"project": ` + jsonQuote(root) + `}`
	req, _ := http.NewRequest("POST", "/v1/generate", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	body = `{"project": ` + jsonQuote(root) + `, "card": "childA"}`
	req, _ = http.NewRequest("POST", "/v1/run", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []datalog.DerivedFact `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "childA", resp.Results[0].CardKey)
	assert.Equal(t, "effort", resp.Results[0].Field)
	assert.Equal(t, "5", resp.Results[0].Value)
}

func TestRunUnknownCard(t *testing.T) {
	root := setupTestProject(t)
	srv := NewServer(manager.NewProjectManager(stubSolverConfig(t)))

	w := httptest.NewRecorder()
	body := `{"project": ` + jsonQuote(root) + `, "card": "childX"}`
	req, _ := http.NewRequest("POST", "/v1/run", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBeforeGenerate(t *testing.T) {
	root := setupTestProject(t)
	srv := NewServer(manager.NewProjectManager(stubSolverConfig(t)))

	w := httptest.NewRecorder()
	body := `{"project": ` + jsonQuote(root) + `, "card": "childA"}`
	req, _ := http.NewRequest("POST", "/v1/run", strings.NewReader(body))
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// jsonQuote JSON-quotes a path so Windows separators survive in request bodies.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
