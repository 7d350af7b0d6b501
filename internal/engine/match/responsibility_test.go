package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns canned vectors per text, in input order.
type stubProvider struct {
	vecs map[string][]float64
	err  error
}

func (p *stubProvider) Available() bool { return true }

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := p.vecs[t]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Build data pipelines. Own the warehouse models! Ship it now? ok")
	assert.Equal(t, []string{
		"Build data pipelines.",
		"Own the warehouse models!",
		"Ship it now?",
	}, got)

	assert.Nil(t, SplitSentences("   "))
}

func TestSplitSentencesDropsShortFragments(t *testing.T) {
	got := SplitSentences("Yes. Own the data platform. No way.")
	assert.Equal(t, []string{"Own the data platform."}, got)
}

func TestSplitSentencesLongSemicolonSplit(t *testing.T) {
	clause := "maintain the ingestion service that loads vendor feeds every night"
	long := clause
	for len(long) <= 400 {
		long += "; " + clause
	}
	got := SplitSentences(long)
	require.Greater(t, len(got), 1)
	for _, s := range got {
		assert.NotContains(t, s, ";")
	}
}

func TestComputeOverlap(t *testing.T) {
	jobText := "You will design streaming pipelines for clickstream events. " +
		"You will also mentor junior analysts on query tuning."
	resp := []string{
		"designed streaming pipelines processing clickstream events",
		"negotiated vendor procurement contracts",
	}

	got := ComputeOverlap(resp, jobText, DefaultOverlapConfig())
	require.Len(t, got, 1)
	assert.Equal(t, resp[0], got[0].Responsibility)
	assert.GreaterOrEqual(t, got[0].Coverage, 0.4)
	assert.Contains(t, got[0].BestSentence, "streaming pipelines")
	assert.NotEmpty(t, got[0].OverlapTokens)
}

func TestComputeSemanticMatches(t *testing.T) {
	jobText := "Operate the nightly batch ingestion layer. Keep dashboards fresh."
	resp := []string{"ran a nightly batch ingestion layer end to end"}

	provider := &stubProvider{vecs: map[string][]float64{
		resp[0]: {1, 0, 0},
		"Operate the nightly batch ingestion layer.": {1, 0, 0},
	}}

	got := ComputeSemanticMatches(context.Background(), provider, resp, jobText, DefaultSemanticConfig())
	require.Len(t, got, 1)
	assert.Equal(t, resp[0], got[0].Responsibility)
	assert.Equal(t, "Operate the nightly batch ingestion layer.", got[0].JobSentence)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
}

func TestComputeSemanticMatchesFailOpen(t *testing.T) {
	resp := []string{"ran a nightly batch ingestion layer"}
	jobText := "Operate the nightly batch ingestion layer."

	assert.Nil(t, ComputeSemanticMatches(context.Background(), nil, resp, jobText, DefaultSemanticConfig()))

	broken := &stubProvider{err: errors.New("upstream down")}
	assert.Nil(t, ComputeSemanticMatches(context.Background(), broken, resp, jobText, DefaultSemanticConfig()))
}

func TestComputeSemanticMatchesSkipsShortPhrases(t *testing.T) {
	provider := &stubProvider{vecs: map[string][]float64{}}
	got := ComputeSemanticMatches(context.Background(), provider,
		[]string{"ran things"}, "Operate the nightly batch layer.", DefaultSemanticConfig())
	assert.Nil(t, got)
}

func TestInferAdditionalSkills(t *testing.T) {
	matches := []SemanticMatch{
		{JobSentence: "Tune Kafka consumers and Airflow DAGs daily.", Similarity: 0.8},
		{JobSentence: "Tune Kafka consumers again.", Similarity: 0.7},
	}
	got := InferAdditionalSkills(matches, []string{"kafka", "airflow", "rust"})
	assert.Equal(t, []string{"kafka", "airflow"}, got)
}

func TestNormTokensDropsGlue(t *testing.T) {
	toks := normTokens("Working with the Data Pipelines for Analytics")
	assert.NotContains(t, toks, "the")
	assert.NotContains(t, toks, "for")
	assert.Contains(t, toks, "data")
	joined := strings.Join(toks, " ")
	assert.Contains(t, joined, "pipelin")
}
