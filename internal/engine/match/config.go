package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BatchConfig carries every tunable the batch engine consumes.
// Weights and thresholds must validate before any batch work begins.
type BatchConfig struct {
	Weights    ScoreWeights    `yaml:"weights"`
	Thresholds ScoreThresholds `yaml:"thresholds"`

	Overlap  OverlapConfig  `yaml:"overlap"`
	Semantic SemanticConfig `yaml:"semantic"`
	Enricher EnricherConfig `yaml:"enricher"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Cache    CacheLimits    `yaml:"cache"`

	// MaxWorkers bounds the batch worker pool; 1 = fully sequential.
	MaxWorkers int `yaml:"max_workers"`
	// TargetSeniority are acceptable posting seniority levels.
	TargetSeniority []string `yaml:"target_seniority"`
}

// DefaultBatchConfig returns a config with every documented default.
// Weights have no defaults; they must come from configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Overlap:         DefaultOverlapConfig(),
		Semantic:        DefaultSemanticConfig(),
		Enricher:        DefaultEnricherConfig(),
		Dedupe:          DefaultDedupeConfig(),
		Cache:           DefaultCacheLimits(),
		MaxWorkers:      1,
		TargetSeniority: []string{"Associate", "Mid-Senior"},
	}
}

// Validate checks the parts that make downstream comparisons meaningless
// when wrong. This is the one fatal configuration path.
func (c BatchConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	return c.Thresholds.Validate()
}

// weightsFile mirrors the weights YAML layout.
type weightsFile struct {
	Weights    ScoreWeights    `yaml:"weights"`
	Thresholds ScoreThresholds `yaml:"thresholds"`
}

// LoadWeightsFile reads and validates weights + thresholds from YAML.
// Any validation failure is returned as an error; callers must treat it
// as fatal before batch work.
func LoadWeightsFile(path string) (ScoreWeights, ScoreThresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScoreWeights{}, ScoreThresholds{}, fmt.Errorf("weights file: %w", err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return ScoreWeights{}, ScoreThresholds{}, fmt.Errorf("weights file %s: %w", path, err)
	}
	if err := wf.Weights.Validate(); err != nil {
		return ScoreWeights{}, ScoreThresholds{}, err
	}
	if err := wf.Thresholds.Validate(); err != nil {
		return ScoreWeights{}, ScoreThresholds{}, err
	}
	return wf.Weights, wf.Thresholds, nil
}

// matchingFile mirrors the matching YAML layout.
type matchingFile struct {
	Overlap  *OverlapConfig  `yaml:"overlap"`
	Semantic *SemanticConfig `yaml:"semantic"`
	Enricher *EnricherConfig `yaml:"enricher"`
	Dedupe   *DedupeConfig   `yaml:"dedupe"`
	Cache    *CacheLimits    `yaml:"cache"`
}

// ApplyMatchingFile overlays matching tunables from YAML onto cfg.
// A missing file keeps defaults; a malformed file is an error. Sections and
// keys absent from the file keep their current values, so a file may set a
// single key without disturbing the rest of its section.
func ApplyMatchingFile(cfg *BatchConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("matching file: %w", err)
	}
	// Decode straight into the live sections: only keys present in the file
	// are written, everything else stays at its default.
	mf := matchingFile{
		Overlap:  &cfg.Overlap,
		Semantic: &cfg.Semantic,
		Enricher: &cfg.Enricher,
		Dedupe:   &cfg.Dedupe,
		Cache:    &cfg.Cache,
	}
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("matching file %s: %w", path, err)
	}
	return nil
}
