package match

import (
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/anatolykoptev/go_match/internal/engine"
)

// titleCleanRe collapses everything outside [a-z0-9] for signatures.
var titleCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// DedupeConfig tunes duplicate detection.
type DedupeConfig struct {
	// DescPrefix includes this many leading description chars in the
	// deterministic signature; 0 disables.
	DescPrefix int `yaml:"desc_prefix"`
	// EnableSimilarity turns on the near-duplicate refinement pass.
	EnableSimilarity bool `yaml:"enable_similarity"`
	// JaccardMin is the minimum description token similarity for a near-duplicate.
	JaccardMin float64 `yaml:"jaccard_min"`
	// TitleFuzzyMin is the minimum title partial-ratio for a near-duplicate pair.
	TitleFuzzyMin int `yaml:"title_fuzzy_min"`
}

// DefaultDedupeConfig returns the standard dedup settings.
func DefaultDedupeConfig() DedupeConfig {
	return DedupeConfig{
		DescPrefix:       120,
		EnableSimilarity: true,
		JaccardMin:       0.82,
		TitleFuzzyMin:    90,
	}
}

// BuildSignature returns the deterministic duplicate key for a record:
// normalized company | normalized location | cleaned title | optional
// description prefix.
func BuildSignature(rec *PostingRecord, descPrefix int) string {
	company := strings.ToLower(strings.TrimSpace(rec.Company()))
	location := strings.ToLower(strings.TrimSpace(rec.Loc()))
	title := strings.TrimSpace(titleCleanRe.ReplaceAllString(strings.ToLower(rec.Title), " "))

	parts := []string{company, location, title}
	if descPrefix > 0 && rec.DescriptionClean != "" {
		parts = append(parts, strings.ToLower(engine.Truncate(rec.DescriptionClean, descPrefix)))
	}
	return strings.Join(parts, "|")
}

func dedupeTokens(text string) []string {
	return strings.Fields(titleCleanRe.ReplaceAllString(strings.ToLower(text), " "))
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa := make(map[string]bool, len(a))
	for _, t := range a {
		sa[t] = true
	}
	sb := make(map[string]bool, len(b))
	for _, t := range b {
		sb[t] = true
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}
	return float64(inter) / float64(len(sa)+len(sb)-inter)
}

// laterOf picks the record to mark duplicate from a near-duplicate pair:
// the later-collected one, with lexicographically greater JobID breaking
// timestamp ties so results do not depend on input order.
func laterOf(a, b *PostingRecord) *PostingRecord {
	if b.CollectedAt.After(a.CollectedAt) {
		return b
	}
	if a.CollectedAt.After(b.CollectedAt) {
		return a
	}
	if b.JobID > a.JobID {
		return b
	}
	return a
}

// DetectDuplicates marks duplicates in two phases and returns the count of
// records newly marked.
//
// Phase 1 walks records in ascending collection time; the first record per
// signature is canonical, later holders of the same signature are marked.
// Phase 2 buckets canonical records by (company, location) and compares
// pairs within a bucket: titles must pass the fuzzy minimum, then stemless
// description token Jaccard must meet the minimum; the later-collected record
// of the pair is marked. Records already duplicate are never reverted.
func DetectDuplicates(records []*PostingRecord, cfg DedupeConfig) int {
	sorted := append([]*PostingRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CollectedAt.Equal(sorted[j].CollectedAt) {
			return sorted[i].CollectedAt.Before(sorted[j].CollectedAt)
		}
		return sorted[i].JobID < sorted[j].JobID
	})

	type bucketKey struct{ company, location string }
	sigFirst := make(map[string]*PostingRecord)
	buckets := make(map[bucketKey][]*PostingRecord)
	var bucketOrder []bucketKey
	dupCount := 0

	for _, rec := range sorted {
		sig := BuildSignature(rec, cfg.DescPrefix)
		if strings.TrimSpace(sig) == "" {
			continue
		}
		if _, ok := sigFirst[sig]; !ok {
			sigFirst[sig] = rec
			key := bucketKey{
				company:  strings.ToLower(strings.TrimSpace(rec.Company())),
				location: strings.ToLower(strings.TrimSpace(rec.Loc())),
			}
			if _, seen := buckets[key]; !seen {
				bucketOrder = append(bucketOrder, key)
			}
			buckets[key] = append(buckets[key], rec)
			continue
		}
		if rec.Status != StatusDuplicate {
			rec.Status = StatusDuplicate
			dupCount++
		}
	}

	if !cfg.EnableSimilarity {
		engine.AddDuplicatesMarked(dupCount)
		return dupCount
	}

	for _, key := range bucketOrder {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}
		for i := 0; i < len(bucket); i++ {
			a := bucket[i]
			if a.Status == StatusDuplicate {
				continue
			}
			tokensA := dedupeTokens(a.DescriptionClean)
			for j := i + 1; j < len(bucket); j++ {
				b := bucket[j]
				if a.Status == StatusDuplicate {
					break
				}
				if b.Status == StatusDuplicate {
					continue
				}
				tf := fuzzy.PartialRatio(strings.ToLower(a.Title), strings.ToLower(b.Title))
				if tf < cfg.TitleFuzzyMin {
					continue
				}
				if jaccard(tokensA, dedupeTokens(b.DescriptionClean)) >= cfg.JaccardMin {
					later := laterOf(a, b)
					if later.Status != StatusDuplicate {
						later.Status = StatusDuplicate
						dupCount++
					}
				}
			}
		}
	}
	engine.AddDuplicatesMarked(dupCount)
	return dupCount
}
