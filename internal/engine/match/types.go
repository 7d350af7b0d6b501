package match

import "time"

// Status is the lifecycle state of a posting within a batch.
type Status string

const (
	StatusNew         Status = "new"
	StatusShortlisted Status = "shortlisted"
	StatusDuplicate   Status = "duplicate"
)

// OverlapDetail records a skill surfaced by responsibility overlap.
type OverlapDetail struct {
	Skill    string  `json:"skill"`
	Coverage float64 `json:"coverage"`
	Fuzzy    int     `json:"fuzzy"`
}

// SemanticDetail records a skill surfaced by semantic matching or enrichment.
type SemanticDetail struct {
	Skill string `json:"skill"`
}

// SkillsMeta carries extraction provenance: which stage contributed each skill.
type SkillsMeta struct {
	BaseExtracted []string         `json:"base_extracted"`
	ResumeOverlap []string         `json:"resume_overlap"`
	OverlapAdded  []OverlapDetail  `json:"overlap_added"`
	SemanticAdded []SemanticDetail `json:"semantic_added"`
}

// PostingRecord is a single job posting flowing through the batch.
// Owned by the orchestrator for the duration of a batch and mutated in place;
// the new→duplicate transition is one-way within a batch.
type PostingRecord struct {
	JobID                 string     `json:"job_id"`
	Title                 string     `json:"title"`
	CompanyName           string     `json:"company_name"`
	CompanyNameNormalized string     `json:"company_name_normalized,omitempty"`
	Location              string     `json:"location,omitempty"`
	LocationNormalized    string     `json:"location_normalized,omitempty"`
	DescriptionRaw        string     `json:"description_raw,omitempty"`
	DescriptionClean      string     `json:"description_clean,omitempty"`
	PostedAt              *time.Time `json:"posted_at,omitempty"`
	CollectedAt           time.Time  `json:"collected_at"`
	EmploymentType        string     `json:"employment_type,omitempty"`
	SeniorityLevel        string     `json:"seniority_level,omitempty"`

	SkillsExtracted []string    `json:"skills_extracted,omitempty"`
	SkillsMeta      *SkillsMeta `json:"skills_meta,omitempty"`

	ScoreTotal     float64            `json:"score_total,omitempty"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown,omitempty"`

	Status Status `json:"status"`
}

// Company returns the normalized company name, falling back to the raw one.
func (r *PostingRecord) Company() string {
	if r.CompanyNameNormalized != "" {
		return r.CompanyNameNormalized
	}
	return r.CompanyName
}

// Loc returns the normalized location, falling back to the raw one.
func (r *PostingRecord) Loc() string {
	if r.LocationNormalized != "" {
		return r.LocationNormalized
	}
	return r.Location
}

// CandidateProfile is the parsed resume side of matching.
// Immutable for the duration of a batch.
type CandidateProfile struct {
	Skills           []string `json:"skills"`            // ranked, priority order preserved
	Responsibilities []string `json:"responsibilities"`  // responsibility phrases
	Summary          string   `json:"summary,omitempty"` // free-text summary
}
