package match

import (
	"bufio"
	"os"
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/anatolykoptev/go_match/internal/engine"
)

const (
	// maxExtracted caps the skills returned per posting.
	maxExtracted = 40
	// minCoverageRatio accepts a multi-word skill when this share of its
	// stemmed parts appears anywhere in the document.
	minCoverageRatio = 0.7
	// fuzzThreshold is the partial-ratio fallback for multi-word skills.
	fuzzThreshold = 80
	// proximityWindow is the token span that earns the proximity bonus.
	proximityWindow = 8

	// overlapCoverageThreshold accepts a resume skill against the posting.
	overlapCoverageThreshold = 0.6
	// overlapFuzzSingle / overlapFuzzMulti are the resume-overlap fuzzy fallbacks.
	overlapFuzzSingle = 90
	overlapFuzzMulti  = 82
)

// LoadSeedSkills reads one skill per line, skipping blanks. Missing file yields nil.
func LoadSeedSkills(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

// ExtractSkills matches seed skills against a posting description.
//
// A multi-word skill matches when >=70% of its stemmed parts appear anywhere
// in the stemmed document token set, or its phrase partial-ratio against the
// text is >=80. A single-word skill matches on stem presence or a
// word-boundary hit. Matches score coverage + 0.5 proximity bonus (all first
// occurrences within an 8-token window) + 0.05 per token occurrence, and are
// returned ordered by score then original seed order, capped at 40.
//
// Deterministic: same inputs always yield the same output and order, which
// the extraction cache relies on.
func ExtractSkills(description string, seedSkills []string) []string {
	if description == "" || len(seedSkills) == 0 {
		return nil
	}

	text := engine.NormalizeText(description)
	rawTokens := engine.Tokenize(text)
	stemTokens := engine.StemTokens(rawTokens)

	stemSet := make(map[string]bool, len(stemTokens))
	positions := make(map[string][]int, len(stemTokens))
	for idx, tok := range stemTokens {
		stemSet[tok] = true
		positions[tok] = append(positions[tok], idx)
	}

	type scored struct {
		skill string
		score float64
		order int
	}
	var results []scored
	seen := make(map[string]bool, len(seedSkills))

	for order, rawSkill := range seedSkills {
		skill := strings.TrimSpace(rawSkill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		normKey := engine.NormalizeText(key)
		parts := engine.Tokenize(normKey)
		if len(parts) == 0 {
			continue
		}
		partsStem := engine.StemTokens(parts)

		matched := false
		coverage := 0
		proximityBonus := 0.0

		if len(partsStem) > 1 {
			var present []string
			for _, p := range partsStem {
				if stemSet[p] {
					present = append(present, p)
				}
			}
			coverage = len(present)
			if coverage > 0 && float64(coverage)/float64(len(partsStem)) >= minCoverageRatio {
				matched = true
				// proximity over the first occurrence of each present token
				minPos, maxPos := -1, -1
				for _, p := range present {
					pos := positions[p][0]
					if minPos == -1 || pos < minPos {
						minPos = pos
					}
					if pos > maxPos {
						maxPos = pos
					}
				}
				if minPos >= 0 && maxPos-minPos <= proximityWindow {
					proximityBonus = 0.5
				}
			}
			if !matched && fuzzy.PartialRatio(normKey, text) >= fuzzThreshold {
				matched = true
				coverage = len(partsStem)
			}
		} else {
			if stemSet[partsStem[0]] || wordBoundaryMatch(parts[0], text) {
				matched = true
				coverage = 1
			}
		}

		if matched {
			freq := 0
			for _, p := range partsStem {
				freq += len(positions[p])
			}
			results = append(results, scored{
				skill: rawSkill,
				score: float64(coverage) + proximityBonus + float64(freq)*0.05,
				order: order,
			})
			seen[key] = true
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})
	if len(results) > maxExtracted {
		results = results[:maxExtracted]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.skill
	}
	return out
}

// wordBoundaryMatch reports a \b-delimited hit of token in text.
func wordBoundaryMatch(token, text string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(token) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ExtractResumeOverlap returns the subset of resume skills loosely present in
// the description, preserving resume order. Multi-word skills accept on 60%
// stem coverage or phrase partial-ratio >=82; single-word skills on stem
// presence or partial-ratio >=90 against the joined stemmed document.
func ExtractResumeOverlap(description string, resumeSkills []string) []string {
	if description == "" || len(resumeSkills) == 0 {
		return nil
	}
	descTokens := engine.StemTokens(engine.Tokenize(strings.ToLower(description)))
	descSet := make(map[string]bool, len(descTokens))
	for _, t := range descTokens {
		descSet[t] = true
	}
	joined := strings.Join(descTokens, " ")

	var out []string
	for _, skill := range resumeSkills {
		raw := strings.TrimSpace(skill)
		if raw == "" {
			continue
		}
		parts := engine.Tokenize(strings.ToLower(raw))
		if len(parts) == 0 {
			continue
		}
		stems := engine.StemTokens(parts)

		if len(stems) == 1 {
			if descSet[stems[0]] || fuzzy.PartialRatio(strings.ToLower(raw), joined) >= overlapFuzzSingle {
				out = append(out, raw)
			}
			continue
		}
		present := 0
		for _, s := range stems {
			if descSet[s] {
				present++
			}
		}
		coverage := float64(present) / float64(len(stems))
		if coverage >= overlapCoverageThreshold ||
			fuzzy.PartialRatio(strings.ToLower(raw), strings.ToLower(description)) >= overlapFuzzMulti {
			out = append(out, raw)
		}
	}
	return out
}
