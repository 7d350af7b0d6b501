package match

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineDesc = `We are hiring a data engineer to design and operate batch
and streaming pipelines. You will write Python and SQL daily, deploy services
on Kubernetes, and tune Kafka consumers. Experience with Airflow scheduling
and dbt modeling is a plus. Our warehouse runs on Snowflake.`

var pipelineSeeds = []string{
	"python", "sql", "kafka", "kubernetes", "airflow", "dbt", "snowflake",
	"machine learning", "rust", "elixir",
}

func TestExtractSkillsFindsPresent(t *testing.T) {
	got := ExtractSkills(pipelineDesc, pipelineSeeds)
	for _, want := range []string{"python", "sql", "kafka", "kubernetes", "airflow", "dbt", "snowflake"} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "rust")
	assert.NotContains(t, got, "elixir")
}

func TestExtractSkillsOutputIsSubsetOfSeeds(t *testing.T) {
	seedSet := make(map[string]bool, len(pipelineSeeds))
	for _, s := range pipelineSeeds {
		seedSet[s] = true
	}
	for _, s := range ExtractSkills(pipelineDesc, pipelineSeeds) {
		assert.True(t, seedSet[s], "extracted skill %q not in seed list", s)
	}
}

func TestExtractSkillsDeterministic(t *testing.T) {
	first := ExtractSkills(pipelineDesc, pipelineSeeds)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractSkills(pipelineDesc, pipelineSeeds))
	}
}

func TestExtractSkillsIdempotentUnderAugmentation(t *testing.T) {
	first := ExtractSkills(pipelineDesc, pipelineSeeds)
	require.NotEmpty(t, first)

	// feeding the result back into the text must not lose or reorder
	// anything already found
	augmented := pipelineDesc + " " + strings.Join(first, " ")
	second := ExtractSkills(augmented, pipelineSeeds)

	inFirst := make(map[string]bool, len(first))
	for _, s := range first {
		inFirst[s] = true
	}
	surviving := make([]string, 0, len(first))
	for _, s := range second {
		if inFirst[s] {
			surviving = append(surviving, s)
		}
	}
	assert.Equal(t, first, surviving)
}

func TestExtractSkillsMultiWordCoverage(t *testing.T) {
	desc := "We apply machine learning to ranking problems."
	got := ExtractSkills(desc, []string{"machine learning", "deep learning frameworks"})
	assert.Contains(t, got, "machine learning")
	assert.NotContains(t, got, "deep learning frameworks")
}

func TestExtractSkillsProximityRanking(t *testing.T) {
	// "data engineering" tokens are adjacent; "cloud platforms" tokens are
	// far apart, so only the first earns the proximity bonus.
	desc := "Strong data engineering background required. We run cloud " +
		"infrastructure for many product teams and several internal tooling " +
		"groups across multiple regions with managed platforms."
	got := ExtractSkills(desc, []string{"cloud platforms", "data engineering"})
	require.Len(t, got, 2)
	assert.Equal(t, "data engineering", got[0])
}

func TestExtractSkillsCap(t *testing.T) {
	var seeds []string
	desc := ""
	for i := 0; i < 50; i++ {
		word := fmt.Sprintf("tool%02d", i)
		seeds = append(seeds, word)
		desc += word + " "
	}
	assert.Len(t, ExtractSkills(desc, seeds), 40)
}

func TestExtractSkillsEmptyInputs(t *testing.T) {
	assert.Nil(t, ExtractSkills("", pipelineSeeds))
	assert.Nil(t, ExtractSkills(pipelineDesc, nil))
}

func TestExtractResumeOverlap(t *testing.T) {
	resume := []string{"Python", "Kafka", "Terraform", "data modeling"}
	got := ExtractResumeOverlap(pipelineDesc, resume)

	assert.Contains(t, got, "Python")
	assert.Contains(t, got, "Kafka")
	assert.NotContains(t, got, "Terraform")

	// resume order preserved
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "Python", got[0])
}

func TestLoadSeedSkills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.txt")
	require.NoError(t, os.WriteFile(path, []byte("python\n\n  sql  \nkafka\n"), 0o640))

	got, err := LoadSeedSkills(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "sql", "kafka"}, got)

	missing, err := LoadSeedSkills(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
