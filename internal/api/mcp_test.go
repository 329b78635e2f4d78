package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hireloop/hireloop/internal/evaluation"
	"github.com/hireloop/hireloop/internal/storage"
)

func newTestMCPServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	evaluator := evaluation.NewEvaluator(store, logger, 2)

	return NewMCPServer(MCPDeps{
		Store:     store,
		Evaluator: evaluator,
	})
}

func TestMCPServerServesSSE(t *testing.T) {
	sse := server.NewSSEServer(newTestMCPServer(t))
	ts := httptest.NewServer(sse)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/sse")
	if err != nil {
		t.Fatalf("GET /sse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}
