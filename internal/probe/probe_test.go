package probe

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/riftsim/internal/config"
	"github.com/lawnchairsociety/riftsim/internal/rift"
	"github.com/lawnchairsociety/riftsim/internal/server"
)

func TestRunAll_AgainstServer(t *testing.T) {
	cfg := config.DefaultConfig()
	sim, err := rift.New(cfg.Model, rift.WithChunkSize(64))
	require.NoError(t, err)
	ts := httptest.NewServer(server.NewServer(cfg, sim, nil).Handler())
	defer ts.Close()

	results := RunAll(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")

	require.Len(t, results, len(Checks()))
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Message)
	}
	assert.False(t, Failed(results))
}

func TestRunAll_Unreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ts.Close()

	results := RunAll(context.Background(), url)
	require.Len(t, results, len(Checks()))
	assert.True(t, Failed(results))
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, []Result{
		{Name: "A", Passed: true, Message: "fine"},
		{Name: "B", Passed: false, Message: "broken"},
	})

	out := buf.String()
	assert.Contains(t, out, "[PASS] A: fine")
	assert.Contains(t, out, "[FAIL] B: broken")
	assert.Contains(t, out, "1/2 checks passed")
}
