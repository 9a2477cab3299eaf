// Package report renders simulation results for terminals and files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// WriteText prints the stats block and the eclipse table.
func WriteText(w io.Writer, res *rift.Result) error {
	var b strings.Builder

	fmt.Fprintln(&b, "=== Valour Rift Run Simulation ===")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Speed: %d   Sync: %d   Trials: %d   Seed: %d\n", res.Speed, res.Sync, res.Trials, res.Seed)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%-20s %8s\n", "Avg. Highest Floor", res.AvgFloor)
	fmt.Fprintf(&b, "%-20s %8s\n", "Avg. Hunts", res.AvgHunts)
	fmt.Fprintf(&b, "%-20s %8s\n", "Sigils (Loot)", res.LootSigils)
	fmt.Fprintf(&b, "%-20s %8s\n", "Secrets (Loot)", res.LootSecrets)
	fmt.Fprintf(&b, "%-20s %8s\n", "Sigils (Cache)", res.CacheSigils)
	fmt.Fprintf(&b, "%-20s %8s\n", "Secrets (Cache)", res.CacheSecrets)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Eclipse |   Chance |    Total")
	fmt.Fprintln(&b, "--------+----------+----------")
	marked := false
	for _, e := range res.Eclipses {
		fmt.Fprintf(&b, "%7d | %s | %s\n", e.Number,
			cell(e.Percent, e.Guaranteed()), cell(e.Cumulative, e.CumulativeGuaranteed()))
		marked = marked || e.Guaranteed() || e.CumulativeGuaranteed()
	}
	if marked {
		fmt.Fprintln(&b, "* guaranteed")
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Runs ended: %d out of hunts, %d at an eclipse, %d at the floor cap\n",
		res.Endings.BudgetExhausted, res.Endings.StageFailed, res.Endings.FloorCapReached)

	_, err := io.WriteString(w, b.String())
	return err
}

// cell renders a percentage, marking a guaranteed one with an asterisk.
func cell(v rift.Tenths, guaranteed bool) string {
	mark := " "
	if guaranteed {
		mark = "*"
	}
	return fmt.Sprintf("%6s%%%s", v, mark)
}

// WriteExpectation prints an exact expectation.
func WriteExpectation(w io.Writer, speed, sync int, exp rift.Expectation) error {
	var b strings.Builder

	fmt.Fprintln(&b, "=== Valour Rift Expected Run ===")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Speed: %d   Sync: %d\n", speed, sync)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Expected Floor", exp.Floor)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Expected Hunts", exp.Hunts)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Sigils (Loot)", exp.LootSigils)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Secrets (Loot)", exp.LootSecrets)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Sigils (Cache)", exp.CacheSigils)
	fmt.Fprintf(&b, "%-20s %8.2f\n", "Secrets (Cache)", exp.CacheSecrets)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Eclipse | Chance |  Reach")
	fmt.Fprintln(&b, "--------+--------+--------")
	for i := range exp.Reach {
		fmt.Fprintf(&b, "%7d | %5.1f%% | %5.1f%%\n", i+1, 100*exp.Chance[i], 100*exp.Reach[i])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
