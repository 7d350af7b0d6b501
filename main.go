// go_match — job posting matching, scoring and deduplication engine.
//
// Consumes already-collected posting records plus a parsed candidate profile,
// extracts and merges skills per posting, scores each record against the
// profile, marks duplicates across the batch, and persists the result.
// Acquisition, resume parsing and export live in sibling tools.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"

	"github.com/anatolykoptev/go_match/internal/engine"
	"github.com/anatolykoptev/go_match/internal/engine/match"
	"github.com/anatolykoptev/go_match/internal/store"
)

var (
	recordsFile  = env.Str("RECORDS_FILE", "data/records.json")
	profileFile  = env.Str("PROFILE_FILE", "data/profile.json")
	seedsFile    = env.Str("SEED_SKILLS_FILE", "data/seed_skills.txt")
	weightsFile  = env.Str("WEIGHTS_FILE", "config/weights.yml")
	matchingFile = env.Str("MATCHING_FILE", "config/matching.yml")
	dbPath       = env.Str("DB_PATH", "data/postings.db")
	cachePath    = env.Str("SKILL_CACHE_PATH", "data/skills_cache.jsonl")
)

func main() {
	engine.Init(engine.Config{
		EmbedAPIBase:       env.Str("EMBED_API_BASE", ""),
		EmbedAPIKey:        env.Str("EMBED_API_KEY", ""),
		EmbedModel:         env.Str("EMBED_MODEL", "text-embedding-3-small"),
		EmbedRPS:           env.Float("EMBED_RPS", 2),
		EmbedTimeout:       env.Duration("EMBED_TIMEOUT", 15*time.Second),
		RedisURL:           env.Str("REDIS_URL", ""),
		RunCacheTTL:        env.Duration("RUN_CACHE_TTL", 15*time.Minute),
		RunCacheMaxEntries: env.Int("RUN_CACHE_MAX_ENTRIES", 1000),
	})

	cfg := match.DefaultBatchConfig()
	cfg.MaxWorkers = env.Int("MAX_WORKERS", 1)
	if levels := env.List("TARGET_SENIORITY", ""); len(levels) > 0 {
		cfg.TargetSeniority = levels
	}

	weights, thresholds, err := match.LoadWeightsFile(weightsFile)
	if err != nil {
		// invalid weights make every downstream comparison meaningless
		slog.Error("configuration rejected", slog.Any("error", err))
		os.Exit(1)
	}
	cfg.Weights = weights
	cfg.Thresholds = thresholds
	if err := match.ApplyMatchingFile(&cfg, matchingFile); err != nil {
		slog.Error("configuration rejected", slog.Any("error", err))
		os.Exit(1)
	}

	records, profile, seeds, err := loadInputs()
	if err != nil {
		slog.Error("loading inputs failed", slog.Any("error", err))
		os.Exit(1)
	}
	match.NormalizeRecords(records, nil)

	provider := engine.NewHTTPEmbedder()
	runCache := engine.NewRunCache(engine.Cfg.RedisURL, engine.Cfg.RunCacheTTL, engine.Cfg.RunCacheMaxEntries)
	fileCache := match.NewFileCache(cachePath)

	batch, err := match.NewBatch(cfg, profile, seeds, provider, fileCache, runCache)
	if err != nil {
		slog.Error("configuration rejected", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting go_match",
		slog.Int("records", len(records)),
		slog.Int("seed_skills", len(seeds)),
		slog.Int("workers", cfg.MaxWorkers),
		slog.Bool("embeddings", provider.Available()),
	)

	ctx := context.Background()
	if _, err := batch.Run(ctx, records); err != nil {
		slog.Error("batch failed", slog.Any("error", err))
		os.Exit(1)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		slog.Error("store open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()
	if err := st.UpsertRecords(ctx, records); err != nil {
		slog.Error("store write failed", slog.Any("error", err))
		os.Exit(1)
	}

	os.Stdout.WriteString(engine.FormatMetrics())
}

// loadInputs reads the records batch, candidate profile and seed skill list.
func loadInputs() ([]*match.PostingRecord, match.CandidateProfile, []string, error) {
	var records []*match.PostingRecord
	if err := readJSON(recordsFile, &records); err != nil {
		return nil, match.CandidateProfile{}, nil, err
	}
	for _, rec := range records {
		if rec.Status == "" {
			rec.Status = match.StatusNew
		}
		if rec.CollectedAt.IsZero() {
			rec.CollectedAt = time.Now().UTC()
		}
	}

	var profile match.CandidateProfile
	if err := readJSON(profileFile, &profile); err != nil {
		return nil, match.CandidateProfile{}, nil, err
	}

	seeds, err := match.LoadSeedSkills(seedsFile)
	if err != nil {
		return nil, match.CandidateProfile{}, nil, err
	}
	return records, profile, seeds, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
