package match

import (
	"context"
	"log/slog"
	"math"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/anatolykoptev/go_match/internal/engine"
)

const (
	// maxSentences bounds the sentence list per posting.
	maxSentences = 120
	// maxRespPhrases bounds responsibilities sent to the embedding provider.
	maxRespPhrases = 80
	// minRespWords is the word floor for a phrase to qualify for semantic matching.
	minRespWords = 4
	// longSentenceChars triggers a secondary split on semicolons.
	longSentenceChars = 400
)

// respStopWords filters glue words before overlap computation.
var respStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true,
	"to": true, "for": true, "with": true, "on": true, "in": true, "by": true,
	"at": true, "from": true, "through": true, "across": true, "into": true,
	"using": true, "via": true, "as": true, "is": true, "are": true,
	"were": true, "was": true, "be": true, "being": true, "been": true,
	"that": true, "this": true, "those": true, "these": true, "it": true,
	"its": true, "their": true, "our": true, "your": true,
}

// normTokens tokenizes, drops stop words and sub-3-char tokens, and stems.
func normTokens(text string) []string {
	var out []string
	for _, t := range engine.Tokenize(strings.ToLower(text)) {
		if respStopWords[t] || len(t) <= 2 {
			continue
		}
		out = append(out, engine.Stem(t))
	}
	return out
}

// SplitSentences splits posting text on sentence-ending punctuation,
// further splitting fragments over 400 chars on semicolons, and keeps
// only pieces with at least 3 words.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			pieces = append(pieces, string(runes[start:i+1]))
			for i+1 < len(runes) && isSpace(runes[i+1]) {
				i++
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		pieces = append(pieces, string(runes[start:]))
	}

	var out []string
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if len(p) > longSentenceChars {
			for _, sub := range strings.Split(p, ";") {
				if sub = strings.TrimSpace(sub); sub != "" {
					out = append(out, sub)
				}
			}
		} else if p != "" {
			out = append(out, p)
		}
	}

	kept := out[:0]
	for _, s := range out {
		if len(strings.Fields(s)) >= 3 {
			kept = append(kept, s)
		}
	}
	return kept
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// ResponsibilityOverlap is one accepted lexical match between a candidate
// responsibility phrase and the posting.
type ResponsibilityOverlap struct {
	Responsibility string
	BestSentence   string
	Coverage       float64
	OverlapTokens  []string
	Fuzzy          int
}

// OverlapConfig tunes lexical responsibility matching.
type OverlapConfig struct {
	MinCoverage float64 `yaml:"min_coverage"`
	MinFuzzy    int     `yaml:"min_fuzzy"`
}

// DefaultOverlapConfig returns the standard thresholds.
func DefaultOverlapConfig() OverlapConfig {
	return OverlapConfig{MinCoverage: 0.4, MinFuzzy: 82}
}

// ComputeOverlap finds responsibilities lexically present in the posting.
// A responsibility is accepted when its stemmed-token coverage meets
// MinCoverage or its fuzzy partial-ratio against the whole text meets
// MinFuzzy. The best sentence is the one with the highest raw overlap count.
func ComputeOverlap(responsibilities []string, jobText string, cfg OverlapConfig) []ResponsibilityOverlap {
	jobTokens := normTokens(jobText)
	jobSet := make(map[string]bool, len(jobTokens))
	for _, t := range jobTokens {
		jobSet[t] = true
	}
	sentences := SplitSentences(jobText)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	sentTokens := make([]map[string]bool, len(sentences))
	for i, s := range sentences {
		toks := normTokens(s)
		m := make(map[string]bool, len(toks))
		for _, t := range toks {
			m[t] = true
		}
		sentTokens[i] = m
	}

	var results []ResponsibilityOverlap
	for _, resp := range responsibilities {
		rtoks := normTokens(resp)
		if len(rtoks) == 0 {
			continue
		}
		var overlap []string
		for _, t := range rtoks {
			if jobSet[t] {
				overlap = append(overlap, t)
			}
		}
		coverage := float64(len(overlap)) / float64(len(rtoks))
		fuzzScore := fuzzy.PartialRatio(strings.ToLower(resp), strings.ToLower(jobText))

		best := ""
		if len(sentences) > 0 {
			bestCount := -1
			for i, m := range sentTokens {
				count := 0
				for _, t := range rtoks {
					if m[t] {
						count++
					}
				}
				if count > bestCount {
					bestCount = count
					best = sentences[i]
				}
			}
		}

		if coverage >= cfg.MinCoverage || fuzzScore >= cfg.MinFuzzy {
			results = append(results, ResponsibilityOverlap{
				Responsibility: resp,
				BestSentence:   best,
				Coverage:       math.Round(coverage*1000) / 1000,
				OverlapTokens:  overlap,
				Fuzzy:          fuzzScore,
			})
		}
	}
	return results
}

// SemanticMatch pairs a responsibility with its most similar posting sentence.
type SemanticMatch struct {
	Responsibility string
	JobSentence    string
	Similarity     float64
}

// SemanticConfig tunes provider-backed responsibility matching.
type SemanticConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	Enable        bool    `yaml:"enable"`
}

// DefaultSemanticConfig returns the standard thresholds.
func DefaultSemanticConfig() SemanticConfig {
	return SemanticConfig{MinSimilarity: 0.64, Enable: true}
}

// ComputeSemanticMatches delegates responsibility matching to the embedding
// provider. Qualifying phrases (>=4 words, first 80) are compared against the
// first 120 posting sentences; each keeps its best sentence when similarity
// meets MinSimilarity. Provider absence or failure yields no matches,
// never an error.
func ComputeSemanticMatches(ctx context.Context, provider engine.EmbeddingProvider, responsibilities []string, jobText string, cfg SemanticConfig) []SemanticMatch {
	if provider == nil || !provider.Available() || len(responsibilities) == 0 || jobText == "" {
		return nil
	}
	var respSentences []string
	for _, r := range responsibilities {
		if len(strings.Fields(r)) >= minRespWords {
			respSentences = append(respSentences, r)
		}
		if len(respSentences) == maxRespPhrases {
			break
		}
	}
	jobSentences := SplitSentences(jobText)
	if len(jobSentences) > maxSentences {
		jobSentences = jobSentences[:maxSentences]
	}
	if len(respSentences) == 0 || len(jobSentences) == 0 {
		return nil
	}

	embR, err := provider.Embed(ctx, respSentences)
	if err != nil {
		slog.Debug("semantic match: responsibility embed failed", slog.Any("error", err))
		return nil
	}
	embJ, err := provider.Embed(ctx, jobSentences)
	if err != nil {
		slog.Debug("semantic match: sentence embed failed", slog.Any("error", err))
		return nil
	}

	var matches []SemanticMatch
	for i, r := range respSentences {
		bestJ, bestSim := -1, 0.0
		for j := range jobSentences {
			if sim := engine.Cosine(embR[i], embJ[j]); bestJ == -1 || sim > bestSim {
				bestJ, bestSim = j, sim
			}
		}
		if bestJ >= 0 && bestSim >= cfg.MinSimilarity {
			matches = append(matches, SemanticMatch{
				Responsibility: r,
				JobSentence:    jobSentences[bestJ],
				Similarity:     bestSim,
			})
		}
	}
	return matches
}

// InferAdditionalSkills returns seed skills literally present in matched
// sentences, in provider-match order, deduplicated.
func InferAdditionalSkills(matches []SemanticMatch, seedSkills []string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, m := range matches {
		sentLow := strings.ToLower(m.JobSentence)
		for _, sk := range seedSkills {
			if !seen[sk] && strings.Contains(sentLow, strings.ToLower(sk)) {
				seen[sk] = true
				found = append(found, sk)
			}
		}
	}
	return found
}
