package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// execute runs the root command with args against a config file in a temp dir.
func execute(t *testing.T, configYAML string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riftsim.yaml")
	if configYAML != "" {
		require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o644))
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate_JSON(t *testing.T) {
	out, err := execute(t, "", "simulate", "--speed", "20", "--trials", "200", "--seed", "1", "--format", "json")
	require.NoError(t, err)

	var res rift.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 20, res.Speed)
	assert.Equal(t, 200, res.Trials)
	assert.Equal(t, int64(1), res.Seed)
	assert.Equal(t, "51.0", res.AvgFloor.String())
	assert.Len(t, res.Eclipses, 6)
}

func TestSimulate_Text(t *testing.T) {
	out, err := execute(t, "", "simulate", "--speed", "20", "--trials", "50", "--seed", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Avg. Highest Floor")
	assert.Contains(t, out, "51.0")
	assert.Contains(t, out, "guaranteed")
	assert.Contains(t, out, "Seed: 3")
}

func TestSimulate_SeedReproduces(t *testing.T) {
	args := []string{"simulate", "--speed", "2", "--sync", "1", "--trials", "300", "--seed", "99", "--format", "json"}
	first, err := execute(t, "", args...)
	require.NoError(t, err)
	second, err := execute(t, "", args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulate_ConfigDefaults(t *testing.T) {
	out, err := execute(t, "simulation:\n  trials: 40\n  seed: 12\n", "simulate", "--format", "json")
	require.NoError(t, err)

	var res rift.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 40, res.Trials)
	assert.Equal(t, int64(12), res.Seed)
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		args []string
		want string
	}{
		{"negative speed", "", []string{"simulate", "--speed=-1"}, "invalid speed -1"},
		{"zero trials", "", []string{"simulate", "--trials", "0"}, "invalid trial count 0"},
		{"unknown format", "", []string{"simulate", "--format", "xml"}, "unknown format"},
		{"bad yaml", "simulation: [", []string{"simulate"}, "load config"},
		{"bad model", "model:\n  hunt_budget: 0\n", []string{"simulate"}, "hunt_budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.yaml, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSimulate_ConfigurationErrorIsTyped(t *testing.T) {
	_, err := execute(t, "", "simulate", "--sync=-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, rift.ErrInvalidConfig)
}

func TestSweep_WritesCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sweep.csv")
	_, err := execute(t, "", "sweep",
		"--speed-min", "0", "--speed-max", "1",
		"--sync-min", "0", "--sync-max", "2",
		"--trials", "20", "--seed", "5", "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "speed,sync,trials,seed,avg_floor"))
	assert.True(t, strings.HasPrefix(lines[1], "0,0,20,5,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0,1,20,6,"), lines[2])
	assert.True(t, strings.HasPrefix(lines[6], "1,2,20,10,"), lines[6])
}

func TestSweep_RowMatchesSimulate(t *testing.T) {
	csvOut, err := execute(t, "", "sweep",
		"--speed-min", "3", "--speed-max", "3",
		"--sync-min", "4", "--sync-max", "4",
		"--trials", "150", "--seed", "77")
	require.NoError(t, err)

	jsonOut, err := execute(t, "", "simulate", "--speed", "3", "--sync", "4", "--trials", "150", "--seed", "77", "--format", "json")
	require.NoError(t, err)
	var res rift.Result
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &res))

	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], ",")
	assert.Equal(t, res.AvgFloor.String(), fields[4])
	assert.Equal(t, res.AvgHunts.String(), fields[5])
}

func TestSweep_InvalidRange(t *testing.T) {
	_, err := execute(t, "", "sweep", "--speed-min", "5", "--speed-max", "1", "--trials", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, rift.ErrInvalidConfig)
}

func TestExpect(t *testing.T) {
	out, err := execute(t, "", "expect", "--speed", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Expected Floor")
	assert.Contains(t, out, "51.00")
	assert.Contains(t, out, "100.0%")

	_, err = execute(t, "", "expect", "--speed=-2")
	assert.ErrorIs(t, err, rift.ErrInvalidConfig)
}

func TestServe_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riftsim.yaml")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "serve", "--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestProbe_AgainstServeCommand(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	path := filepath.Join(t.TempDir(), "riftsim.yaml")
	serveCmd := newRootCmd()
	serveCmd.SetArgs([]string{"--config", path, "serve", "--addr", addr})
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serveCmd.ExecuteContext(ctx) }()
	defer func() {
		cancel()
		<-served
	}()

	// Wait for the listener.
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	out, err := execute(t, "", "probe", "--url", "ws://"+addr+"/ws")
	require.NoError(t, err, out)
	assert.Contains(t, out, "6/6 checks passed")
}

func TestProbe_Unreachable(t *testing.T) {
	out, err := execute(t, "", "probe", "--url", "ws://127.0.0.1:1/ws")
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL]")
}
