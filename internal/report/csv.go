package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/lawnchairsociety/riftsim/internal/rift"
)

var csvHeader = []string{
	"speed", "sync", "trials", "seed",
	"avg_floor", "avg_hunts",
	"loot_sigils", "loot_secrets", "cache_sigils", "cache_secrets",
	"eclipses", "eclipse_1_pct", "eclipse_1_cumulative",
}

// CSVWriter writes one row per result. It is safe for concurrent use.
type CSVWriter struct {
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a CSVWriter and writes the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &CSVWriter{writer: cw}, nil
}

// Write writes a single result.
func (c *CSVWriter) Write(res *rift.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := rift.EclipseStat{}
	if len(res.Eclipses) > 0 {
		first = res.Eclipses[0]
	}

	record := []string{
		strconv.Itoa(res.Speed),
		strconv.Itoa(res.Sync),
		strconv.Itoa(res.Trials),
		strconv.FormatInt(res.Seed, 10),
		res.AvgFloor.String(),
		res.AvgHunts.String(),
		res.LootSigils.String(),
		res.LootSecrets.String(),
		res.CacheSigils.String(),
		res.CacheSecrets.String(),
		strconv.Itoa(len(res.Eclipses)),
		first.Percent.String(),
		first.Cumulative.String(),
	}

	if err := c.writer.Write(record); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}
