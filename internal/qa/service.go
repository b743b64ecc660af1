// Package qa runs question sessions: uploading a question document, answering
// its questions against the reference corpus and exporting the results.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sha1n/mcp-refqa-server/internal/assembler"
	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
	"github.com/sha1n/mcp-refqa-server/internal/questions"
	"github.com/sha1n/mcp-refqa-server/internal/report"
)

// UploadExtension is the only accepted question document type.
const UploadExtension = ".pdf"

// References is the reference corpus as seen by question sessions.
type References interface {
	IsReady() bool
	Documents() ([]domain.ReferenceDocument, error)
	Document(filename string) (domain.ReferenceDocument, error)
	Search(query, filename string, size int) (*corpus.SearchResults, error)
	Reload(ctx context.Context) (corpus.LoadReport, error)
	LastReport() corpus.LoadReport
}

// Service manages question sessions.
type Service struct {
	settings *config.QuestionsSettings
	refs     References
	decoder  corpus.DocumentDecoder
	sessions *SessionStore
}

// NewService creates a session service answering against refs. Uploaded
// documents are decoded with decoder.
func NewService(settings *config.QuestionsSettings, refs References, decoder corpus.DocumentDecoder) *Service {
	return &Service{
		settings: settings,
		refs:     refs,
		decoder:  decoder,
		sessions: NewSessionStore(),
	}
}

// References returns the reference corpus.
func (s *Service) References() References {
	return s.refs
}

// Sessions returns the session store.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// ValidateUpload checks an upload before it is decoded: it must be a PDF,
// no larger than the configured limit and not empty.
func (s *Service) ValidateUpload(filename string, size int64) error {
	if !strings.EqualFold(filepath.Ext(filename), UploadExtension) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidFileType, filename)
	}
	if size > s.settings.MaxUploadSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrFileTooLarge, filename, size, s.settings.MaxUploadSize)
	}
	if size == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmptyFile, filename)
	}
	return nil
}

// Upload validates and decodes a question document and opens a session for the
// questions it contains. A document that fails to decode opens no session.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if err := s.ValidateUpload(filename, int64(len(data))); err != nil {
		return Session{}, err
	}

	res, err := s.decoder.Decode(filename, data)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	session := s.sessions.Create(filename, questions.Extract(res.Text))
	slog.Info("Question document loaded",
		"session", session.ID, "filename", filename, "pages", res.Pages, "questions", len(session.Questions))
	return session, nil
}

// LoadText opens a session from already extracted text.
func (s *Service) LoadText(ctx context.Context, name, text string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrEmptyFile, name)
	}

	session := s.sessions.Create(name, questions.Extract(pdftext.Normalize(text)))
	slog.Info("Question text loaded", "session", session.ID, "name", name, "questions", len(session.Questions))
	return session, nil
}

// Answer runs a search pass over the session's questions against the current
// corpus. Running it again with the same corpus yields the same answers.
func (s *Service) Answer(ctx context.Context, id string) (Session, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return Session{}, err
	}

	docs, err := s.refs.Documents()
	if err != nil {
		return Session{}, err
	}

	answered, err := assembler.Assemble(ctx, session.Questions, docs, assembler.Options{MaxMatches: s.settings.MaxMatches})
	if err != nil {
		return Session{}, err
	}

	session, err = s.sessions.SetAnswers(id, answered)
	if err != nil {
		return Session{}, err
	}
	slog.Info("Questions answered",
		"session", id, "questions", len(answered), "answered", session.AnsweredCount(), "references", len(docs))
	return session, nil
}

// Get returns a session.
func (s *Service) Get(id string) (Session, error) {
	return s.sessions.Get(id)
}

// Export renders the session's questions and answers as a text report.
func (s *Service) Export(id string) (string, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return "", err
	}
	return report.Export(session.Questions), nil
}

// Reset discards a session.
func (s *Service) Reset(id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	slog.Info("Session reset", "session", id)
	return nil
}

// UserMessage turns an error into the text shown to an end user.
func (s *Service) UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFileType):
		return "Please upload a PDF file"
	case errors.Is(err, domain.ErrFileTooLarge):
		return fmt.Sprintf("File is too large. Please upload a file smaller than %s.", formatSize(s.settings.MaxUploadSize))
	case errors.Is(err, domain.ErrEmptyFile):
		return "The selected file is empty. Please choose a valid PDF file."
	case errors.Is(err, domain.ErrDecode):
		return "Error processing PDF. Please make sure it's a valid PDF file."
	case errors.Is(err, domain.ErrNoReferences):
		return "No reference documents loaded. Please check the reference source and reload."
	case errors.Is(err, corpus.ErrNotReady):
		return notReadyText
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found. Please upload a question document first."
	default:
		return err.Error()
	}
}

// formatSize renders a byte count in whole megabytes when it is one, e.g. "50MB".
func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
