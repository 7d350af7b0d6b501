package match

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_match/internal/engine"
)

// EnricherConfig tunes TF-IDF skill enrichment.
type EnricherConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	EnableBigrams       bool    `yaml:"enable_bigrams"`
	MaxNew              int     `yaml:"max_new"`
}

// DefaultEnricherConfig returns the standard enrichment settings.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{SimilarityThreshold: 0.32, EnableBigrams: true, MaxNew: 15}
}

// SemanticEnricher proposes additional seed skills via TF-IDF cosine
// similarity against the posting. Deterministic and dependency-light: no
// external model. Safe for concurrent use; the only mutable state is a pure
// memoization cache of per-seed token lists.
type SemanticEnricher struct {
	cfg EnricherConfig

	mu        sync.Mutex
	seedCache map[string][][]string
}

// NewSemanticEnricher builds an enricher with the given config.
func NewSemanticEnricher(cfg EnricherConfig) *SemanticEnricher {
	return &SemanticEnricher{cfg: cfg, seedCache: make(map[string][][]string)}
}

// ngramTokens yields unigrams, plus adjacent-pair bigrams when enabled.
func ngramTokens(tokens []string, bigrams bool) []string {
	out := make([]string, 0, len(tokens)*2)
	for i, t := range tokens {
		out = append(out, t)
		if bigrams && i+1 < len(tokens) {
			out = append(out, t+"_"+tokens[i+1])
		}
	}
	return out
}

func (e *SemanticEnricher) seedTokens(seedSkills []string) [][]string {
	key := "u"
	if e.cfg.EnableBigrams {
		key = "b"
	}
	key += "\x00" + strings.Join(seedSkills, "\x1f")

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.seedCache[key]; ok {
		return cached
	}
	lists := make([][]string, len(seedSkills))
	for i, s := range seedSkills {
		lists[i] = ngramTokens(engine.Tokenize(strings.ToLower(s)), e.cfg.EnableBigrams)
	}
	e.seedCache[key] = lists
	return lists
}

// Enrich appends seed skills similar to the posting and not already present
// in the heuristic result. New skills are ordered by descending similarity,
// ties broken by original seed order, capped at MaxNew.
func (e *SemanticEnricher) Enrich(description string, heuristicSkills, seedSkills []string) []string {
	if description == "" || len(seedSkills) == 0 {
		return heuristicSkills
	}

	descTokens := ngramTokens(engine.Tokenize(strings.ToLower(description)), e.cfg.EnableBigrams)
	seedLists := e.seedTokens(seedSkills)

	// document frequency over {description} ∪ {each seed phrase}
	docFreq := make(map[string]int)
	countDoc := func(tokens []string) {
		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}
	countDoc(descTokens)
	for _, lst := range seedLists {
		countDoc(lst)
	}
	totalDocs := 1 + len(seedLists)
	idf := make(map[string]float64, len(docFreq))
	for t, df := range docFreq {
		idf[t] = math.Log(float64(1+totalDocs)/float64(1+df)) + 1
	}

	descVec := tfidfVector(descTokens, idf)
	existing := make(map[string]bool, len(heuristicSkills))
	for _, s := range heuristicSkills {
		existing[strings.ToLower(s)] = true
	}

	type result struct {
		skill      string
		similarity float64
		order      int
	}
	var results []result
	for i, seed := range seedSkills {
		if existing[strings.ToLower(seed)] {
			continue
		}
		sim := cosineSparse(tfidfVector(seedLists[i], idf), descVec)
		if sim >= e.cfg.SimilarityThreshold {
			results = append(results, result{skill: seed, similarity: sim, order: i})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].similarity != results[j].similarity {
			return results[i].similarity > results[j].similarity
		}
		return results[i].order < results[j].order
	})
	if e.cfg.MaxNew >= 0 && len(results) > e.cfg.MaxNew {
		results = results[:e.cfg.MaxNew]
	}

	out := append([]string(nil), heuristicSkills...)
	for _, r := range results {
		out = append(out, r.skill)
	}
	return out
}

func tfidfVector(tokens []string, idf map[string]float64) map[string]float64 {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	vec := make(map[string]float64, len(tf))
	for t, freq := range tf {
		vec[t] = float64(freq) * idf[t]
	}
	return vec
}

func cosineSparse(a, b map[string]float64) float64 {
	var num float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			num += va * vb
		}
	}
	if num == 0 {
		return 0
	}
	var na, nb float64
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return num / (math.Sqrt(na) * math.Sqrt(nb))
}
