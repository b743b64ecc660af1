package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/qa"
	"github.com/sha1n/mcp-refqa-server/internal/report"
)

// UploadField is the multipart form field holding the question document.
const UploadField = "file"

// Handler serves the API routes.
type Handler struct {
	svc *qa.Service
}

// NewHandler creates a Handler backed by svc.
func NewHandler(svc *qa.Service) *Handler {
	return &Handler{svc: svc}
}

// ReferenceInfo describes a loaded reference document without its text.
type ReferenceInfo struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Length   int    `json:"length"`
}

// ReferencesResponse is returned by GET /api/v1/references.
type ReferencesResponse struct {
	Generation uint64               `json:"generation"`
	Documents  []ReferenceInfo      `json:"documents"`
	Failed     []corpus.LoadFailure `json:"failed,omitempty"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFileType),
		errors.Is(err, domain.ErrEmptyFile),
		errors.Is(err, domain.ErrDecode),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoReferences):
		return http.StatusConflict
	case errors.Is(err, corpus.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": h.svc.UserMessage(err)})
}

// CreateSession handles POST /api/v1/sessions with a multipart question PDF.
func (h *Handler) CreateSession(c *gin.Context) {
	header, err := c.FormFile(UploadField)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: missing %q file field", domain.ErrInvalidInput, UploadField))
		return
	}

	// Reject by name and declared size before reading the body.
	if err := h.svc.ValidateUpload(header.Filename, header.Size); err != nil {
		h.fail(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	session, err := h.svc.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListSessions handles GET /api/v1/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.svc.Sessions().List()})
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.Reset(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnswerSession handles POST /api/v1/sessions/:id/answers.
func (h *Handler) AnswerSession(c *gin.Context) {
	session, err := h.svc.Answer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ExportSession handles GET /api/v1/sessions/:id/export.
func (h *Handler) ExportSession(c *gin.Context) {
	text, err := h.svc.Export(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DefaultFilename))
	c.Data(http.StatusOK, report.ContentType, []byte(text))
}

// ListReferences handles GET /api/v1/references.
func (h *Handler) ListReferences(c *gin.Context) {
	refs := h.svc.References()
	docs, err := refs.Documents()
	if err != nil {
		h.fail(c, err)
		return
	}

	last := refs.LastReport()
	resp := ReferencesResponse{
		Generation: last.Generation,
		Documents:  make([]ReferenceInfo, 0, len(docs)),
		Failed:     last.Failed,
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, ReferenceInfo{Filename: doc.Filename, Pages: doc.Pages, Length: len(doc.Content)})
	}
	c.JSON(http.StatusOK, resp)
}

// GetReference handles GET /api/v1/references/:filename.
func (h *Handler) GetReference(c *gin.Context) {
	doc, err := h.svc.References().Document(c.Param("filename"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ReloadReferences handles POST /api/v1/references/reload.
func (h *Handler) ReloadReferences(c *gin.Context) {
	rep, err := h.svc.References().Reload(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// SearchReferences handles GET /api/v1/references/search?q=...&filename=...&limit=...
func (h *Handler) SearchReferences(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}

	results, err := h.svc.References().Search(c.Query("q"), c.Query("filename"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
