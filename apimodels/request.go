package apimodels

const (
	DefaultYear             = 2024
	DefaultIncludeSQL       = true
	DefaultIncludeReasoning = true
)

type QuestionRequest struct {
	// Question is the literal disclosure question text
	Question string `json:"question"`

	// Optional generation parameters. Nil means "use the default".
	Year             *int  `json:"year,omitempty"`
	IncludeSQL       *bool `json:"include_sql,omitempty"`
	IncludeReasoning *bool `json:"include_reasoning,omitempty"`
}

// WithDefaults returns a copy of r where every omitted optional field is set
// to its default. Explicit values, including false, are kept.
func (r QuestionRequest) WithDefaults() QuestionRequest {
	out := r
	if out.Year == nil || *out.Year == 0 {
		out.Year = Ptr(DefaultYear)
	}
	if out.IncludeSQL == nil {
		out.IncludeSQL = Ptr(DefaultIncludeSQL)
	}
	if out.IncludeReasoning == nil {
		out.IncludeReasoning = Ptr(DefaultIncludeReasoning)
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
