package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Extractions      atomic.Int64
	ExtractionErrors atomic.Int64
	EmbedCalls       atomic.Int64
	EmbedErrors      atomic.Int64
	RecordsScored    atomic.Int64
	DuplicatesMarked atomic.Int64
}

// Incrementors for the match sub-package.
func IncrExtractions()      { metrics.Extractions.Add(1) }
func IncrExtractionErrors() { metrics.ExtractionErrors.Add(1) }
func IncrEmbedCalls()       { metrics.EmbedCalls.Add(1) }
func IncrEmbedErrors()      { metrics.EmbedErrors.Add(1) }
func IncrRecordsScored()    { metrics.RecordsScored.Add(1) }

// AddDuplicatesMarked records n records marked duplicate in a batch.
func AddDuplicatesMarked(n int) { metrics.DuplicatesMarked.Add(int64(n)) }

// GetMetrics returns a snapshot of all metrics including run-cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"extractions":       metrics.Extractions.Load(),
		"extraction_errors": metrics.ExtractionErrors.Load(),
		"embed_calls":       metrics.EmbedCalls.Load(),
		"embed_errors":      metrics.EmbedErrors.Load(),
		"records_scored":    metrics.RecordsScored.Load(),
		"duplicates_marked": metrics.DuplicatesMarked.Load(),
		"cache_hits":        hits,
		"cache_misses":      misses,
	}
}

// FormatMetrics returns metrics as a simple text format for logging or an HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"extractions", "extraction_errors",
		"embed_calls", "embed_errors",
		"records_scored", "duplicates_marked",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
