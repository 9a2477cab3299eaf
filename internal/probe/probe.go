// Package probe runs smoke checks against a running simulation service.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lawnchairsociety/riftsim/internal/rift"
	"github.com/lawnchairsociety/riftsim/internal/server"
	"github.com/lawnchairsociety/riftsim/internal/testclient"
)

// probeTrials keeps each check cheap for the server.
const probeTrials = 200

// Result represents the result of a check.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

// Check is a single smoke check run over an open connection.
type Check struct {
	Name string
	Run  func(ctx context.Context, client *testclient.TestClient) Result
}

// Checks returns the checks run by RunAll, in order.
func Checks() []Check {
	return []Check{
		{"Simulate", checkSimulate},
		{"Progress", checkProgress},
		{"Reproducible Seed", checkReproducible},
		{"Zero Trials Rejected", checkZeroTrials},
		{"Negative Tuning Rejected", checkNegativeTuning},
		{"Malformed Request Rejected", checkMalformed},
	}
}

// RunAll runs every check over one connection. A connection failure fails every check.
func RunAll(ctx context.Context, url string) []Result {
	checks := Checks()
	results := make([]Result, 0, len(checks))

	client, err := testclient.Dial(ctx, url, nil)
	if err != nil {
		for _, c := range checks {
			results = append(results, Result{Name: c.Name, Passed: false, Message: err.Error()})
		}
		return results
	}
	defer client.Close()
	client.SetTimeout(30 * time.Second)

	for _, c := range checks {
		r := c.Run(ctx, client)
		r.Name = c.Name
		results = append(results, r)
	}
	return results
}

// Failed reports whether any result failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// PrintResults writes a summary of the results.
func PrintResults(w io.Writer, results []Result) {
	passed := 0
	for _, r := range results {
		status := "PASS"
		if r.Passed {
			passed++
		} else {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Name, r.Message)
	}
	fmt.Fprintf(w, "\n%d/%d checks passed\n", passed, len(results))
}

func trials(n int) *int      { return &n }
func seed(n int64) *int64    { return &n }
func fail(msg string) Result { return Result{Passed: false, Message: msg} }

func checkSimulate(ctx context.Context, client *testclient.TestClient) Result {
	res, err := client.Simulate(server.Request{Speed: 5, Sync: 5, Trials: trials(probeTrials)}, nil)
	if err != nil {
		return fail(err.Error())
	}
	if res.Trials != probeTrials {
		return fail(fmt.Sprintf("expected %d trials, got %d", probeTrials, res.Trials))
	}
	if ended := res.Endings.BudgetExhausted + res.Endings.StageFailed + res.Endings.FloorCapReached; ended != probeTrials {
		return fail(fmt.Sprintf("endings add up to %d, want %d", ended, probeTrials))
	}
	if res.AvgFloor.Float() < 1 {
		return fail(fmt.Sprintf("average floor %s below the starting floor", res.AvgFloor))
	}
	for i := 1; i < len(res.Eclipses); i++ {
		if res.Eclipses[i].Cumulative.LessThan(res.Eclipses[i-1].Cumulative.Decimal) {
			return fail(fmt.Sprintf("cumulative drops at eclipse %d", i+1))
		}
	}
	return Result{Passed: true, Message: fmt.Sprintf("avg floor %s over %d runs", res.AvgFloor, res.Trials)}
}

func checkProgress(ctx context.Context, client *testclient.TestClient) Result {
	var last rift.Progress
	frames := 0
	_, err := client.Simulate(server.Request{Trials: trials(probeTrials)}, func(p rift.Progress) {
		frames++
		last = p
	})
	if err != nil {
		return fail(err.Error())
	}
	if frames == 0 {
		return fail("no progress frames received")
	}
	if last.Done != probeTrials || last.Total != probeTrials {
		return fail(fmt.Sprintf("last progress %d/%d, want %d/%d", last.Done, last.Total, probeTrials, probeTrials))
	}
	return Result{Passed: true, Message: fmt.Sprintf("%d progress frames", frames)}
}

func checkReproducible(ctx context.Context, client *testclient.TestClient) Result {
	req := server.Request{Speed: 3, Sync: 2, Trials: trials(probeTrials), Seed: seed(42)}

	first, err := client.Simulate(req, nil)
	if err != nil {
		return fail(err.Error())
	}
	second, err := client.Simulate(req, nil)
	if err != nil {
		return fail(err.Error())
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		return fail("same seed produced different results")
	}
	return Result{Passed: true, Message: "seed 42 replayed identically"}
}

func expectRemoteError(client *testclient.TestClient, req server.Request, want string) Result {
	_, err := client.Simulate(req, nil)
	return remoteErrorResult(err, want)
}

func remoteErrorResult(err error, want string) Result {
	var remote *testclient.RemoteError
	if !errors.As(err, &remote) {
		return fail(fmt.Sprintf("expected an error frame, got %v", err))
	}
	if !strings.Contains(remote.Message, want) {
		return fail(fmt.Sprintf("error %q does not mention %q", remote.Message, want))
	}
	return Result{Passed: true, Message: remote.Message}
}

func checkZeroTrials(ctx context.Context, client *testclient.TestClient) Result {
	return expectRemoteError(client, server.Request{Trials: trials(0)}, "trial count")
}

func checkNegativeTuning(ctx context.Context, client *testclient.TestClient) Result {
	return expectRemoteError(client, server.Request{Speed: -1, Trials: trials(probeTrials)}, "speed")
}

func checkMalformed(ctx context.Context, client *testclient.TestClient) Result {
	_, err := client.SendRaw([]byte(`{"speed":"fast"}`))
	return remoteErrorResult(err, "malformed")
}
