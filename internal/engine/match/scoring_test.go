package match

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWeights() ScoreWeights {
	return ScoreWeights{Skill: 0.45, Semantic: 0.15, Recency: 0.15, Seniority: 0.15, Company: 0.10}
}

func TestScoreWeightsValidate(t *testing.T) {
	require.NoError(t, validWeights().Validate())

	w := validWeights()
	w.Skill = 0
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"skill"`)

	// two problems reported in one error
	w = validWeights()
	w.Skill = 0
	w.Semantic = 2.0
	err = w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"skill"`)
	assert.Contains(t, err.Error(), `"semantic"`)

	// sum out of band
	w = ScoreWeights{Skill: 0.1, Semantic: 0.1, Recency: 0.1, Seniority: 0.1, Company: 0.1}
	err = w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestScoreThresholdsValidate(t *testing.T) {
	require.NoError(t, ScoreThresholds{Review: 0.3, Shortlist: 0.7}.Validate())
	assert.Error(t, ScoreThresholds{Review: 0.7, Shortlist: 0.3}.Validate())
	assert.Error(t, ScoreThresholds{Review: 0.3, Shortlist: 0.3}.Validate())
	assert.Error(t, ScoreThresholds{Review: -0.1, Shortlist: 0.5}.Validate())
	assert.Error(t, ScoreThresholds{Review: 0.3, Shortlist: 1.2}.Validate())
}

func TestComputeSkillScorePlainPath(t *testing.T) {
	resume := make([]string, 20)
	for i := range resume {
		resume[i] = fmt.Sprintf("skill%02d", i+1)
	}
	job := []string{"skill01", "skill02", "skill03", "terraform", "looker"}

	// top-12 core, overlap 3, job 5: F1 = 0.3529..., smoothed by ^0.92
	got := ComputeSkillScore(job, resume, nil)
	assert.Greater(t, got, 0.32)
	assert.Less(t, got, 0.40)
	assert.InDelta(t, 0.383681, got, 0.0005)
}

func TestComputeSkillScoreBounds(t *testing.T) {
	assert.Zero(t, ComputeSkillScore(nil, []string{"go"}, nil))
	assert.Zero(t, ComputeSkillScore([]string{"go"}, nil, nil))
	assert.Zero(t, ComputeSkillScore([]string{"rust"}, []string{"go", "sql"}, nil))

	// perfect overlap on a small core
	skills := []string{"go", "sql", "kafka"}
	assert.InDelta(t, 1.0, ComputeSkillScore(skills, skills, nil), 1e-9)

	// case-insensitive matching
	assert.Positive(t, ComputeSkillScore([]string{"GO"}, []string{"go", "sql"}, nil))
}

func TestComputeSkillScoreAdaptiveWeighting(t *testing.T) {
	stats := &CorpusStats{
		TotalJobs: 100,
		Freq:      map[string]int{"rare": 1, "common": 90},
	}
	resume := []string{"rare", "common"}

	rareScore := ComputeSkillScore([]string{"rare"}, resume, stats)
	commonScore := ComputeSkillScore([]string{"common"}, resume, stats)

	assert.Greater(t, rareScore, commonScore, "rarer overlap should score higher")
	for _, s := range []float64{rareScore, commonScore} {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestComputeSemanticScoreFallback(t *testing.T) {
	ctx := context.Background()

	assert.Zero(t, ComputeSemanticScore(ctx, nil, "", "anything"))
	assert.Zero(t, ComputeSemanticScore(ctx, nil, "summary", ""))

	// no provider: lexical fallback, identical text is a full match
	summary := "data engineer building batch and streaming pipelines"
	got := ComputeSemanticScore(ctx, nil, summary, summary+" for a retail analytics platform")
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestComputeRecencyScore(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 0.3, ComputeRecencyScore(nil, now), 1e-9)

	fresh := now
	assert.InDelta(t, 1.0, ComputeRecencyScore(&fresh, now), 1e-9)

	week := now.AddDate(0, 0, -7)
	assert.InDelta(t, 0.173774, ComputeRecencyScore(&week, now), 1e-4)

	// clock skew: future dates never exceed 1
	future := now.AddDate(0, 0, 2)
	assert.InDelta(t, 1.0, ComputeRecencyScore(&future, now), 1e-9)
}

func TestComputeSeniorityPenalty(t *testing.T) {
	targets := []string{"Associate", "Mid-Senior"}
	assert.Zero(t, ComputeSeniorityPenalty("", targets))
	assert.Zero(t, ComputeSeniorityPenalty("Mid-Senior", targets))
	assert.InDelta(t, 0.25, ComputeSeniorityPenalty("Director", targets), 1e-9)
}

func TestAggregateScore(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	posted := now.AddDate(0, 0, -3)
	rec := &PostingRecord{
		JobID:            "agg-1",
		Title:            "Data Engineer",
		DescriptionClean: "build pipelines with go and sql on kubernetes",
		PostedAt:         &posted,
		SeniorityLevel:   "Director",
		SkillsExtracted:  []string{"go", "sql"},
	}
	profile := CandidateProfile{
		Skills:  []string{"go", "sql", "kafka"},
		Summary: "pipelines with go and sql",
	}
	weights := validWeights()

	AggregateScore(context.Background(), rec, profile, weights, []string{"Mid-Senior"}, nil, nil, now)

	require.NotNil(t, rec.ScoreBreakdown)
	for _, key := range []string{"skill", "semantic", "recency", "seniority_component", "company"} {
		assert.Contains(t, rec.ScoreBreakdown, key)
	}
	assert.InDelta(t, 0.75, rec.ScoreBreakdown["seniority_component"], 1e-9)
	assert.Zero(t, rec.ScoreBreakdown["company"])

	want := weights.Skill*rec.ScoreBreakdown["skill"] +
		weights.Semantic*rec.ScoreBreakdown["semantic"] +
		weights.Recency*rec.ScoreBreakdown["recency"] +
		weights.Seniority*rec.ScoreBreakdown["seniority_component"]
	assert.InDelta(t, want, rec.ScoreTotal, 1e-4)

	// total carries at most four decimals
	assert.InDelta(t, rec.ScoreTotal, float64(int(rec.ScoreTotal*1e4+0.5))/1e4, 1e-9)
}
