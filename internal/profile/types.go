// Package profile defines the normalized profile record produced by an
// acquisition and the assembly step that validates raw extracted fields.
package profile

// Record is the normalized view of an acquired LinkedIn profile.
type Record struct {
	FullName   string       `json:"full_name"`
	Headline   string       `json:"headline"`
	About      string       `json:"about"`
	Location   string       `json:"location"`
	Industry   string       `json:"industry"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Skills     []string     `json:"skills"`
}

// Experience is a single position, most recent first.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is a single school entry.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
	Field  string `json:"field,omitempty"`
}

// Caps on the bounded collections. Extraction already truncates during
// collection; Assemble re-applies them so the invariant holds regardless of
// which source produced the record.
const (
	MaxExperience = 3
	MaxEducation  = 2
	MaxSkills     = 10
)
