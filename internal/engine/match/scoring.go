package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/anatolykoptev/go_match/internal/engine"
)

// ScoreWeights are the per-component multipliers of the aggregate score.
type ScoreWeights struct {
	Skill     float64 `yaml:"skill"`
	Semantic  float64 `yaml:"semantic"`
	Recency   float64 `yaml:"recency"`
	Seniority float64 `yaml:"seniority"`
	Company   float64 `yaml:"company"`
}

// ScoreThresholds classify totals into review/shortlist bands.
type ScoreThresholds struct {
	Shortlist float64 `yaml:"shortlist"`
	Review    float64 `yaml:"review"`
}

// Validate checks weight bounds: each weight in (0, 1.5], sum in [0.8, 1.5].
// All problems are reported in one error.
func (w ScoreWeights) Validate() error {
	var problems []string
	check := func(name string, v float64) {
		if v <= 0 {
			problems = append(problems, fmt.Sprintf("weight %q must be > 0", name))
		}
		if v > 1.5 {
			problems = append(problems, fmt.Sprintf("weight %q too large (>1.5)", name))
		}
	}
	check("skill", w.Skill)
	check("semantic", w.Semantic)
	check("recency", w.Recency)
	check("seniority", w.Seniority)
	check("company", w.Company)

	total := w.Skill + w.Semantic + w.Recency + w.Seniority + w.Company
	if total < 0.8 || total > 1.5 {
		problems = append(problems, fmt.Sprintf("total weights sum %.3f outside [0.8,1.5]", total))
	}
	if len(problems) > 0 {
		return errors.New("invalid weights config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks the threshold relation 0 <= review < shortlist <= 1.
func (t ScoreThresholds) Validate() error {
	if !(0 <= t.Review && t.Review < t.Shortlist && t.Shortlist <= 1) {
		return fmt.Errorf("threshold relation must satisfy 0 <= review (%.3f) < shortlist (%.3f) <= 1", t.Review, t.Shortlist)
	}
	return nil
}

const (
	// defaultCoreLimit bounds the resume core when no corpus stats exist.
	defaultCoreLimit = 12
	// smoothingExponent differentiates low-overlap scores on the plain path.
	smoothingExponent = 0.92
	// recencyDecay is the per-day exponential decay rate.
	recencyDecay = 0.25
	// neutralRecency applies when the posted date is unknown.
	neutralRecency = 0.3
	// seniorityMismatchPenalty applies when the posting's level is outside
	// the target set.
	seniorityMismatchPenalty = 0.25
	// breadthBonusCap bounds the adaptive-path breadth bonus.
	breadthBonusCap = 0.08
	// breadthBonusShare is the fraction of core weight that earns a full bonus.
	breadthBonusShare = 0.35
	// semanticDescChars / semanticFallbackChars bound the compared prefixes.
	semanticDescChars     = 2000
	semanticFallbackChars = 500
)

// CorpusStats carries posting-corpus skill frequencies for adaptive weighting.
type CorpusStats struct {
	TotalJobs int
	Freq      map[string]int // lowercased skill -> posting count
}

func (s *CorpusStats) weight(skill string) float64 {
	freq := s.Freq[strings.ToLower(skill)]
	return 1 + math.Log(1+float64(s.TotalJobs)/float64(1+freq))
}

// ComputeSkillScore scores posting skills against the resume skill list.
//
// Without corpus stats it is a weighted F1 over the top-12 resume core with
// uniform weights and a ^0.92 smoothing boost. With stats the core adapts to
// clamp(ceil(0.5*n), 8, 24), skills weigh 1+ln(1+totalJobs/(1+freq)), and a
// bounded breadth bonus rewards overlap relative to 35% of the core weight.
// Always in [0, 1].
func ComputeSkillScore(jobSkills, resumeSkills []string, stats *CorpusStats) float64 {
	if len(jobSkills) == 0 || len(resumeSkills) == 0 {
		return 0
	}

	coreLimit := defaultCoreLimit
	if stats != nil {
		coreLimit = int(math.Ceil(0.5 * float64(len(resumeSkills))))
		if coreLimit < 8 {
			coreLimit = 8
		}
		if coreLimit > 24 {
			coreLimit = 24
		}
	}
	if coreLimit > len(resumeSkills) {
		coreLimit = len(resumeSkills)
	}

	core := make(map[string]bool, coreLimit)
	for _, s := range resumeSkills[:coreLimit] {
		core[strings.ToLower(s)] = true
	}

	weight := func(string) float64 { return 1 }
	if stats != nil {
		weight = stats.weight
	}

	var jobWeight, overlapWeight float64
	seenJob := make(map[string]bool, len(jobSkills))
	for _, s := range jobSkills {
		low := strings.ToLower(s)
		if seenJob[low] {
			continue
		}
		seenJob[low] = true
		w := weight(low)
		jobWeight += w
		if core[low] {
			overlapWeight += w
		}
	}
	if overlapWeight == 0 {
		return 0
	}
	var coreWeight float64
	for s := range core {
		coreWeight += weight(s)
	}

	precision := overlapWeight / jobWeight
	recall := overlapWeight / coreWeight
	f1 := 2 * precision * recall / (precision + recall)

	if stats != nil {
		bonus := breadthBonusCap * overlapWeight / (breadthBonusShare * coreWeight)
		if bonus > breadthBonusCap {
			bonus = breadthBonusCap
		}
		return round6(clamp01(f1 + bonus))
	}
	return round6(clamp01(math.Pow(f1, smoothingExponent)))
}

// ComputeSemanticScore compares the candidate summary against the posting
// description. With a provider, cosine similarity of embeddings remapped from
// [-1,1] to [0,1]; otherwise a fuzzy partial-ratio over the leading 500 chars
// of each, scaled to [0,1]. Empty text on either side yields 0.
func ComputeSemanticScore(ctx context.Context, provider engine.EmbeddingProvider, summary, description string) float64 {
	if summary == "" || description == "" {
		return 0
	}
	if provider != nil && provider.Available() {
		vecs, err := provider.Embed(ctx, []string{summary, engine.Truncate(description, semanticDescChars)})
		if err == nil && len(vecs) == 2 {
			sim := engine.Cosine(vecs[0], vecs[1])
			return round6(clamp01((sim + 1) / 2))
		}
		// fall through to the lexical fallback
	}
	ratio := fuzzy.PartialRatio(
		engine.Truncate(summary, semanticFallbackChars),
		engine.Truncate(description, semanticFallbackChars),
	)
	return round6(float64(ratio) / 100)
}

// ComputeRecencyScore decays exponentially with days since posting.
// Unknown dates score the neutral constant.
func ComputeRecencyScore(postedAt *time.Time, now time.Time) float64 {
	if postedAt == nil {
		return neutralRecency
	}
	days := now.Sub(*postedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return round6(math.Exp(-recencyDecay * days))
}

// ComputeSeniorityPenalty is 0 for unspecified or targeted levels, else fixed.
func ComputeSeniorityPenalty(jobSeniority string, targetLevels []string) float64 {
	if jobSeniority == "" {
		return 0
	}
	for _, lvl := range targetLevels {
		if lvl == jobSeniority {
			return 0
		}
	}
	return seniorityMismatchPenalty
}

// AggregateScore computes all components and the weighted total, writing the
// breakdown and total onto the record. Weights must already be validated.
func AggregateScore(ctx context.Context, rec *PostingRecord, profile CandidateProfile, weights ScoreWeights, targetSeniority []string, provider engine.EmbeddingProvider, stats *CorpusStats, now time.Time) {
	skillScore := ComputeSkillScore(rec.SkillsExtracted, profile.Skills, stats)
	semanticScore := ComputeSemanticScore(ctx, provider, profile.Summary, rec.DescriptionClean)
	recencyScore := ComputeRecencyScore(rec.PostedAt, now)
	seniorityComponent := 1 - ComputeSeniorityPenalty(rec.SeniorityLevel, targetSeniority)

	// company component reserved, always 0 for now
	const companyComponent = 0.0

	total := weights.Skill*skillScore +
		weights.Semantic*semanticScore +
		weights.Recency*recencyScore +
		weights.Seniority*seniorityComponent +
		weights.Company*companyComponent

	rec.ScoreBreakdown = map[string]float64{
		"skill":               skillScore,
		"semantic":            semanticScore,
		"recency":             recencyScore,
		"seniority_component": round6(seniorityComponent),
		"company":             companyComponent,
	}
	rec.ScoreTotal = math.Round(total*1e4) / 1e4
	engine.IncrRecordsScored()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
