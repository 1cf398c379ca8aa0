package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// CloudHandler serves the folder endpoints runtimes and editors sync to.
type CloudHandler struct {
	cloudService *service.CloudService
}

// NewCloudHandler creates a new CloudHandler.
func NewCloudHandler(cloudService *service.CloudService) *CloudHandler {
	return &CloudHandler{cloudService: cloudService}
}

// RequireFolder rejects requests whose :folder is not a valid name.
func (h *CloudHandler) RequireFolder() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.ValidFolder(c.Param("folder")) {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidFolder)
			return
		}
		c.Next()
	}
}

// SubmitResult godoc
// POST /api/v1/cloud/:folder/results
// Accepts a finalized session result. A repeated push is acknowledged
// without being stored twice.
func (h *CloudHandler) SubmitResult(c *gin.Context) {
	var res model.SessionResult
	if fields := validator.Bind(c, &res); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.cloudService.SubmitResult(c.Request.Context(), c.Param("folder"), &res)
	switch {
	case err == nil:
		response.Success(c, http.StatusAccepted, gin.H{"session_id": res.SessionID, "duplicate": false})
	case errors.Is(err, service.ErrDuplicateResult):
		response.Success(c, http.StatusOK, gin.H{"session_id": res.SessionID, "duplicate": true})
	case errors.Is(err, service.ErrInvalidFolder):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFolder)
	default:
		response.Logger(c).Error().Err(err).Str("session_id", res.SessionID).Msg("Failed to queue result")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListResults godoc
// GET /api/v1/cloud/:folder/results
func (h *CloudHandler) ListResults(c *gin.Context) {
	page, perPage := pageParams(c)

	results, pagination, err := h.cloudService.ListResults(c.Request.Context(), c.Param("folder"), page, perPage)
	if err != nil {
		h.fail(c, err, "Failed to list results")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// SaveTest godoc
// POST /api/v1/cloud/:folder/tests
// Saves a quiz into the folder library, replacing an entry with the same id.
func (h *CloudHandler) SaveTest(c *gin.Context) {
	var req model.PushTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	saved, err := h.cloudService.SaveTest(c.Request.Context(), c.Param("folder"), &req)
	if err != nil {
		h.fail(c, err, "Failed to save test")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": saved})
}

// ListTests godoc
// GET /api/v1/cloud/:folder/tests
func (h *CloudHandler) ListTests(c *gin.Context) {
	page, perPage := pageParams(c)

	tests, pagination, err := h.cloudService.ListTests(c.Request.Context(), c.Param("folder"), page, perPage)
	if err != nil {
		h.fail(c, err, "Failed to list tests")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// GetTest godoc
// GET /api/v1/cloud/:folder/tests/:id
func (h *CloudHandler) GetTest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.cloudService.GetTest(c.Request.Context(), c.Param("folder"), id)
	if err != nil {
		h.fail(c, err, "Failed to load test")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// PushBank godoc
// POST /api/v1/cloud/:folder/bank
// Upserts questions into the folder bank by question id.
func (h *CloudHandler) PushBank(c *gin.Context) {
	var req model.PushBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.cloudService.PushBank(c.Request.Context(), c.Param("folder"), req.Questions); err != nil {
		h.fail(c, err, "Failed to update bank")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"upserted": len(req.Questions)})
}

// ListBank godoc
// GET /api/v1/cloud/:folder/bank?stage=&grade=&subject=&semester=
func (h *CloudHandler) ListBank(c *gin.Context) {
	filter := repository.BankFilter{
		Stage:    c.Query("stage"),
		Grade:    c.Query("grade"),
		Subject:  c.Query("subject"),
		Semester: c.Query("semester"),
	}

	questions, err := h.cloudService.ListBank(c.Request.Context(), c.Param("folder"), filter)
	if err != nil {
		h.fail(c, err, "Failed to list bank")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

func (h *CloudHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidFolder):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFolder)
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Logger(c).Error().Err(err).Str("folder", c.Param("folder")).Msg(msg)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}
