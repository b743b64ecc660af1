package domain

// Fixed answer texts.
const (
	// NoAnswerText is the answer given to a question no reference document matches.
	NoAnswerText = "No relevant answer found in reference documents."

	// NoSnippetText is returned by snippet extraction when no sentence holds a keyword.
	NoSnippetText = "No specific match found."
)

// Question is a single question extracted from an uploaded document.
type Question struct {
	// ID is 1-based and assigned in extraction order.
	ID int `json:"id"`

	// Text is the question body without its leading ordinal, trimmed,
	// including the trailing "(Reference: ...)" marker.
	Text string `json:"text"`

	// Answer is empty until a search pass populates it.
	Answer string `json:"answer"`

	// SourceFile is the comma-joined list of contributing reference filenames.
	SourceFile string `json:"source_file"`
}

// Answered reports whether a search pass has populated the answer.
func (q Question) Answered() bool {
	return q.Answer != ""
}

// MatchCandidate is a scored reference document considered for an answer.
type MatchCandidate struct {
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Score   int    `json:"score"`
}
