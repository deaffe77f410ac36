package apimodels

// Question is a single disclosure prompt. Its identity is the literal text.
type Question struct {
	Question string `json:"question"`
}

// Category is a named group of questions. Count always equals len(Questions).
type Category struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
	Count     int        `json:"count"`
}

// NewCategory builds a Category with Count derived from the question list.
func NewCategory(name string, questions []Question) Category {
	if questions == nil {
		questions = []Question{}
	}
	return Category{
		Name:      name,
		Questions: questions,
		Count:     len(questions),
	}
}

type QuestionResponse struct {
	// The question that was answered
	Question string `json:"question"`

	// The generated answer text
	Answer string `json:"answer"`

	// SQL traces, present only when requested
	SQLQueries []SQLQuery `json:"sql_queries,omitempty"`

	// Reasoning behind the queries, present only when requested
	Reasoning string `json:"reasoning,omitempty"`

	// Backend processing time in seconds
	ProcessingTime float64 `json:"processing_time"`

	Timestamp string `json:"timestamp"`
}

type SQLQuery struct {
	Name    string `json:"name"`
	SQL     string `json:"sql"`
	Purpose string `json:"purpose"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	DatabaseConnected bool   `json:"database_connected"`
	Timestamp         string `json:"timestamp"`
}
