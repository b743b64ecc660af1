package domain

// ReferenceDocument is a decoded document of the reference corpus.
// Entries are created once per corpus load and never mutated afterwards.
type ReferenceDocument struct {
	// Filename is the stable corpus key, unique within a corpus.
	// Example: "GG.1500_CEO20241122_v20241101.pdf"
	Filename string `json:"filename"`

	// Content is the full normalized text: every whitespace run collapsed
	// to a single space, trimmed.
	Content string `json:"content"`

	// Pages is the page count reported by the decoder (always positive).
	Pages int `json:"pages"`
}

// Bleve field name constants for the reference search index.
const (
	ReferenceFieldFilename = "filename"
	ReferenceFieldContent  = "content"
	ReferenceFieldPages    = "pages"
)
