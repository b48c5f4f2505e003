package domain

// ReprocessMode selects which candidate files a new run should process,
// based on a prior run's recorded outcomes.
type ReprocessMode string

const (
	// ReprocessAll processes every candidate; no reference run is required.
	ReprocessAll ReprocessMode = "ALL"
	// ReprocessResume processes candidates with no pass/fail outcome in the
	// reference run.
	ReprocessResume ReprocessMode = "RESUME"
	// ReprocessPass re-processes only candidates that passed.
	ReprocessPass ReprocessMode = "PASS"
	// ReprocessFail re-processes only candidates that failed.
	ReprocessFail ReprocessMode = "FAIL"
)

func (m ReprocessMode) IsValid() bool {
	switch m {
	case ReprocessAll, ReprocessResume, ReprocessPass, ReprocessFail:
		return true
	}
	return false
}

// FileFilter narrows a directory scan to candidate model files.
// Zero value matches everything.
type FileFilter struct {
	// Extensions are matched case-insensitively, including the dot (".3dm").
	Extensions []string `json:"extensions,omitempty"`
	// NamePatterns are glob patterns matched against the base file name.
	NamePatterns []string `json:"name_patterns,omitempty"`
}
