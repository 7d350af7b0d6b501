package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_match/internal/engine"
)

// minSkillsBeforeFallback triggers semantic matching and enrichment when the
// merged skill list is still this thin.
const minSkillsBeforeFallback = 5

// Batch runs extraction, scoring and deduplication over a set of records.
// Records are owned by the batch for the duration of Run and mutated in place.
type Batch struct {
	cfg      BatchConfig
	profile  CandidateProfile
	seeds    []string
	provider engine.EmbeddingProvider
	cache    Cache
	run      *engine.RunCache
	enricher *SemanticEnricher
	stats    *CorpusStats
	now      func() time.Time
}

// NewBatch validates the configuration and wires the batch collaborators.
// cache and provider may be nil; run may be nil to disable the per-run cache.
func NewBatch(cfg BatchConfig, profile CandidateProfile, seedSkills []string, provider engine.EmbeddingProvider, cache Cache, run *engine.RunCache) (*Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("batch config: %w", err)
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &Batch{
		cfg:      cfg,
		profile:  profile,
		seeds:    seedSkills,
		provider: provider,
		cache:    cache,
		run:      run,
		enricher: NewSemanticEnricher(cfg.Enricher),
		now:      time.Now,
	}, nil
}

// SetCorpusStats enables adaptive skill weighting for this batch.
func (b *Batch) SetCorpusStats(stats *CorpusStats) { b.stats = stats }

// cachedExtraction is the run-cache payload.
type cachedExtraction struct {
	Skills []string   `json:"skills"`
	Meta   SkillsMeta `json:"meta"`
}

// Extract produces the merged skill list and provenance for a description,
// consulting the per-run cache and the persistent cache before computing.
// Merge order is resume-overlap, base-extracted, responsibility-overlap,
// semantic additions, first-seen wins.
func (b *Batch) Extract(ctx context.Context, description string) ([]string, SkillsMeta) {
	var meta SkillsMeta
	if description == "" {
		return nil, meta
	}
	hash := HashDescription(description)

	if data, ok := b.run.Get(ctx, hash); ok {
		var ce cachedExtraction
		if err := json.Unmarshal(data, &ce); err == nil {
			return ce.Skills, ce.Meta
		}
	}
	if b.cache != nil {
		if entry, ok := b.cache.Get(description); ok {
			b.storeRunEntry(ctx, hash, entry.Skills, entry.Meta)
			return entry.Skills, entry.Meta
		}
	}

	engine.IncrExtractions()
	overlap := ExtractResumeOverlap(description, b.profile.Skills)
	extracted := ExtractSkills(description, b.seeds)

	merged := make([]string, 0, len(overlap)+len(extracted))
	seen := make(map[string]bool)
	for _, list := range [][]string{overlap, extracted} {
		for _, sk := range list {
			if !seen[sk] {
				seen[sk] = true
				merged = append(merged, sk)
			}
		}
	}
	meta = SkillsMeta{BaseExtracted: extracted, ResumeOverlap: overlap}

	if len(b.profile.Responsibilities) > 0 {
		respOverlaps := ComputeOverlap(b.profile.Responsibilities, description, b.cfg.Overlap)
		for _, ro := range respOverlaps {
			if ro.BestSentence == "" {
				continue
			}
			sentLow := strings.ToLower(ro.BestSentence)
			for _, sk := range b.seeds {
				if !seen[sk] && strings.Contains(sentLow, strings.ToLower(sk)) {
					seen[sk] = true
					merged = append(merged, sk)
					meta.OverlapAdded = append(meta.OverlapAdded, OverlapDetail{
						Skill:    sk,
						Coverage: ro.Coverage,
						Fuzzy:    ro.Fuzzy,
					})
				}
			}
		}

		if len(merged) < minSkillsBeforeFallback && b.cfg.Semantic.Enable {
			semMatches := ComputeSemanticMatches(ctx, b.provider, b.profile.Responsibilities, description, b.cfg.Semantic)
			for _, sk := range InferAdditionalSkills(semMatches, b.seeds) {
				if !seen[sk] {
					seen[sk] = true
					merged = append(merged, sk)
					meta.SemanticAdded = append(meta.SemanticAdded, SemanticDetail{Skill: sk})
				}
			}
		}
	}

	// Deterministic TF-IDF enrichment as the last-resort widener.
	if len(merged) < minSkillsBeforeFallback {
		for _, sk := range b.enricher.Enrich(description, merged, b.seeds)[len(merged):] {
			if !seen[sk] {
				seen[sk] = true
				merged = append(merged, sk)
				meta.SemanticAdded = append(meta.SemanticAdded, SemanticDetail{Skill: sk})
			}
		}
	}

	if b.cache != nil {
		b.cache.Put(description, merged, meta)
	}
	b.storeRunEntry(ctx, hash, merged, meta)
	return merged, meta
}

func (b *Batch) storeRunEntry(ctx context.Context, hash string, skills []string, meta SkillsMeta) {
	data, err := json.Marshal(cachedExtraction{Skills: skills, Meta: meta})
	if err != nil {
		return
	}
	b.run.Put(ctx, hash, data)
}

// Score computes the record's component breakdown and weighted total.
func (b *Batch) Score(ctx context.Context, rec *PostingRecord) {
	AggregateScore(ctx, rec, b.profile, b.cfg.Weights, b.cfg.TargetSeniority, b.provider, b.stats, b.now())
}

// Deduplicate runs duplicate detection over the batch and returns the count marked.
func (b *Batch) Deduplicate(records []*PostingRecord) int {
	return DetectDuplicates(records, b.cfg.Dedupe)
}

// Run fans records out over a bounded worker pool, extracts and scores each,
// then runs persistent-cache maintenance and duplicate detection over the
// stable batch. Per-record failures are isolated: the record proceeds with
// whatever partial result was produced, and siblings are unaffected.
func (b *Batch) Run(ctx context.Context, records []*PostingRecord) ([]*PostingRecord, error) {
	start := b.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.MaxWorkers)
	for _, rec := range records {
		g.Go(func() error {
			b.processRecord(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return records, err
	}

	if b.cache != nil {
		b.cache.Purge(b.cfg.Cache)
	}
	dups := b.Deduplicate(records)

	hits, misses := engine.CacheStats()
	slog.Info("batch complete",
		slog.Int("records", len(records)),
		slog.Int("duplicates", dups),
		slog.Int64("cache_hits", hits),
		slog.Int64("cache_misses", misses),
		slog.Duration("elapsed", b.now().Sub(start)),
	)
	return records, nil
}

// processRecord extracts and scores one record, recovering from panics so a
// single bad record never aborts the batch.
func (b *Batch) processRecord(ctx context.Context, rec *PostingRecord) {
	defer func() {
		if r := recover(); r != nil {
			engine.IncrExtractionErrors()
			slog.Error("record processing failed",
				slog.String("job_id", rec.JobID),
				slog.Any("panic", r),
			)
		}
	}()

	if rec.DescriptionClean == "" && rec.DescriptionRaw != "" {
		rec.DescriptionClean = engine.CleanDescription(rec.DescriptionRaw)
	}
	if rec.DescriptionClean != "" {
		skills, meta := b.Extract(ctx, rec.DescriptionClean)
		rec.SkillsExtracted = skills
		rec.SkillsMeta = &meta
		if len(skills) == 0 {
			slog.Info("no skills found",
				slog.String("job_id", rec.JobID),
				slog.Int("desc_len", len(rec.DescriptionClean)),
			)
		}
	}

	b.Score(ctx, rec)
	if rec.Status == StatusNew && rec.ScoreTotal >= b.cfg.Thresholds.Shortlist {
		rec.Status = StatusShortlisted
	}
}
