package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/stemsi/exstem-quiz/internal/compiler"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// The cases below are all rejected before a service is reached, so the
// handlers run without PostgreSQL or Redis.

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

func newRouter() *gin.Engine {
	artifacts := NewArtifactHandler(nil, 64)
	cloud := NewCloudHandler(nil)

	r := gin.New()
	r.POST("/artifacts", artifacts.Compile)
	r.GET("/artifacts/:id", artifacts.Download)
	r.GET("/artifacts/:id/preview", artifacts.Preview)

	folder := r.Group("/cloud/:folder", cloud.RequireFolder())
	folder.POST("/results", cloud.SubmitResult)
	folder.POST("/bank", cloud.PushBank)
	folder.GET("/tests/:id", cloud.GetTest)
	return r
}

func do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newRouter().ServeHTTP(w, req)
	return w
}

func TestArtifactRoutesRejectMalformedIDs(t *testing.T) {
	for _, path := range []string{"/artifacts/nothex", "/artifacts/ABC/preview"} {
		w := do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "INVALID_ID")
	}
}

func TestCompileRejectsOversizedBody(t *testing.T) {
	w := do(http.MethodPost, "/artifacts", `{"quiz":{"questions":[],"settings":{"title":"`+strings.Repeat("x", 200)+`"}}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "QUIZ_TOO_LARGE")
}

func TestCompileRejectsMalformedJSON(t *testing.T) {
	w := do(http.MethodPost, "/artifacts", `{"quiz":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestCloudRoutesRejectBadFolders(t *testing.T) {
	w := do(http.MethodPost, "/cloud/a.b/results", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_FOLDER")
}

func TestSubmitResultValidatesBody(t *testing.T) {
	w := do(http.MethodPost, "/cloud/grade5/results", `{"sessionId":"s1","status":"finished"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "artifactId")
	assert.Contains(t, w.Body.String(), "status")
}

func TestPushBankNeedsQuestions(t *testing.T) {
	w := do(http.MethodPost, "/cloud/grade5/bank", `{"questions":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "questions")
}

func TestGetTestNeedsUUID(t *testing.T) {
	w := do(http.MethodGet, "/cloud/grade5/tests/42", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}

func TestIssueFieldsKeysByQuestion(t *testing.T) {
	fields := issueFields(&compiler.ValidationError{Issues: []compiler.Issue{
		{QuestionID: "q1", Field: "choices", Message: "no choice is marked correct"},
		{QuestionID: "q1", Field: "choices", Message: "duplicate choice id"},
		{Field: "settings.timerSeconds", Message: "must be positive"},
	}})
	assert.Equal(t, map[string]string{
		"questions.q1.choices":  "no choice is marked correct; duplicate choice id",
		"settings.timerSeconds": "must be positive",
	}, fields)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"up":   {nil, http.StatusOK},
		"down": {errors.New("redis: connection refused"), http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(fakePinger{tc.err}).Check)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
