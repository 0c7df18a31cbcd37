package domain

// AnalysisRequest is the caller-facing input of an interpretation run.
type AnalysisRequest struct {
	Question string `json:"question"`
	Category string `json:"category"`
}

// AnalysisResponse is the caller-facing result. Answer is the final
// generation verbatim, or FallbackAnswer when the question was rejected.
type AnalysisResponse struct {
	Answer string `json:"answer"`
}
