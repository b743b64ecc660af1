package domain

import "errors"

var (
	// ErrNoReferences is returned when a search runs against an empty corpus.
	ErrNoReferences = errors.New("no reference documents loaded")

	// ErrInvalidFileType is returned for uploads that are not PDF files.
	ErrInvalidFileType = errors.New("please upload a PDF file")

	// ErrFileTooLarge is returned for uploads above the configured size limit.
	ErrFileTooLarge = errors.New("file is too large")

	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("the selected file is empty")

	// ErrDecode wraps failures to turn document bytes into text.
	ErrDecode = errors.New("failed to decode document")

	// ErrNotFound is returned by fetchers when a reference document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrSessionNotFound is returned for unknown question session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidInput indicates a malformed request argument.
	ErrInvalidInput = errors.New("invalid input")
)
