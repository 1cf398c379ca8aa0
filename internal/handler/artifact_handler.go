package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/compiler"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// ArtifactHandler handles quiz compilation and artifact downloads.
type ArtifactHandler struct {
	artifactService *service.ArtifactService
	maxBody         int64
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(artifactService *service.ArtifactService, maxBody int64) *ArtifactHandler {
	return &ArtifactHandler{
		artifactService: artifactService,
		maxBody:         maxBody,
	}
}

// Compile godoc
// POST /api/v1/artifacts
// Compiles a quiz into a self-contained HTML artifact.
func (h *ArtifactHandler) Compile(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	var req model.CompileArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrQuizTooLarge)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	artifact, err := h.artifactService.Compile(c.Request.Context(), req.Quiz)
	if err != nil {
		var ve *compiler.ValidationError
		switch {
		case errors.As(err, &ve):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrQuizInvalid, issueFields(ve))
		case errors.Is(err, service.ErrQuizTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrQuizTooLarge)
		default:
			response.Logger(c).Error().Err(err).Msg("Failed to compile artifact")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"artifact":     artifact,
		"download_url": fmt.Sprintf("/api/v1/artifacts/%s", artifact.ID),
	})
}

// Download godoc
// GET /api/v1/artifacts/:id
// Serves the compiled HTML document.
func (h *ArtifactHandler) Download(c *gin.Context) {
	id := c.Param("id")
	if !compiler.IsArtifactID(id) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	html, err := h.artifactService.GetHTML(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrArtifactNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Logger(c).Error().Err(err).Str("artifact_id", id).Msg("Failed to load artifact")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	var fileName string
	if c.Query("download") != "" {
		fileName = id + ".html"
	}
	response.Document(c, id, fileName, html)
}

// Preview godoc
// GET /api/v1/artifacts/:id/preview
// Summarizes an artifact from its embedded payload.
func (h *ArtifactHandler) Preview(c *gin.Context) {
	id := c.Param("id")
	if !compiler.IsArtifactID(id) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.artifactService.Preview(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrArtifactNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, compiler.ErrNotAnArtifact), errors.Is(err, compiler.ErrArtifactModified):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotArtifact)
		default:
			response.Logger(c).Error().Err(err).Str("artifact_id", id).Msg("Failed to preview artifact")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"artifact": summary})
}

// issueFields keys each problem by question and field, e.g.
// "questions.q3.correctAnswer" or "settings.timerSeconds".
func issueFields(ve *compiler.ValidationError) map[string]string {
	fields := make(map[string]string, len(ve.Issues))
	for _, issue := range ve.Issues {
		key := issue.Field
		if issue.QuestionID != "" {
			key = "questions." + issue.QuestionID + "." + issue.Field
		}
		if prev, ok := fields[key]; ok {
			fields[key] = prev + "; " + issue.Message
			continue
		}
		fields[key] = issue.Message
	}
	return fields
}
