package interfaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
	"ats-evaluator/logger"
	"ats-evaluator/usecase"
)

const (
	defaultMaxUploadBytes = 10 << 20
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var allowedResumeTypes = map[string]bool{".pdf": true, ".docx": true, ".txt": true}

// Catalog is the job description and evaluation storage used directly by handlers.
type Catalog interface {
	AddJobDescription(ctx context.Context, title, description string) (*domain.JobDescription, error)
	UpdateJobDescription(ctx context.Context, id uint, title, description string) error
	DeleteJobDescription(ctx context.Context, id uint) error
	GetJobDescription(ctx context.Context, id uint) (*domain.JobDescription, error)
	ListJobDescriptions(ctx context.Context) ([]domain.JobDescription, error)
	GetEvaluation(ctx context.Context, id uint) (*domain.EvaluationResult, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, sub usecase.Submission) (*usecase.Report, error)
}

type Historian interface {
	List(ctx context.Context, q usecase.HistoryQuery) ([]domain.EvaluationResult, error)
	Ranking(ctx context.Context, jobDescriptionID uint) (*usecase.Ranking, error)
}

type HTTPHandler struct {
	Store          Catalog
	Evaluator      Evaluator
	History        Historian
	Location       *time.Location
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with CORS, recovery, request logging and the API routes.
func NewRouter(h *HTTPHandler) *gin.Engine {
	h.Logger = logger.OrNop(h.Logger)
	if h.Location == nil {
		h.Location = time.UTC
	}
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = defaultMaxUploadBytes
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.Logger))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(config))

	NewHTTPHandler(router, h)
	return router
}

// NewHTTPHandler registers the API routes on router.
func NewHTTPHandler(router gin.IRouter, h *HTTPHandler) {
	api := router.Group("/api")
	{
		api.GET("/job-descriptions", h.ListJobDescriptions)
		api.POST("/job-descriptions", h.CreateJobDescription)
		api.GET("/job-descriptions/:id", h.GetJobDescription)
		api.PUT("/job-descriptions/:id", h.UpdateJobDescription)
		api.DELETE("/job-descriptions/:id", h.DeleteJobDescription)
		api.GET("/job-descriptions/:id/ranking", h.GetRanking)
		api.GET("/job-descriptions/:id/ranking/export", h.ExportRanking)

		api.POST("/evaluations", h.Evaluate)
		api.GET("/evaluations", h.ListEvaluations)
		api.GET("/evaluations/:id/resume", h.DownloadResume)
	}
}

func (h *HTTPHandler) present() presenter {
	return presenter{loc: h.Location}
}

type jobDescriptionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *HTTPHandler) ListJobDescriptions(c *gin.Context) {
	jds, err := h.Store.ListJobDescriptions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present().jobDescriptions(jds))
}

func (h *HTTPHandler) CreateJobDescription(c *gin.Context) {
	var req jobDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	jd, err := h.Store.AddJobDescription(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.present().jobDescription(*jd))
}

func (h *HTTPHandler) GetJobDescription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	jd, err := h.Store.GetJobDescription(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present().jobDescription(*jd))
}

func (h *HTTPHandler) UpdateJobDescription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req jobDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.UpdateJobDescription(ctx, id, req.Title, req.Description); err != nil {
		h.writeError(c, err)
		return
	}

	jd, err := h.Store.GetJobDescription(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present().jobDescription(*jd))
}

func (h *HTTPHandler) DeleteJobDescription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Store.DeleteJobDescription(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) GetRanking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ranking, err := h.History.Ranking(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present().ranking(ranking))
}

// ExportRanking downloads the ranking as CSV (default) or XLSX.
func (h *HTTPHandler) ExportRanking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	ranking, err := h.History.Ranking(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "xlsx":
		contentType = xlsxContentType
		err = infrastructure.ExportRankingXLSX(&buf, ranking.JobDescription, ranking.Candidates)
	default:
		contentType = "text/csv; charset=utf-8"
		err = infrastructure.ExportRankingCSV(&buf, ranking.Candidates)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("ranking-%d.%s", id, format)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Evaluate accepts a multipart upload (name, email, job_description_id, resume) and
// evaluates it synchronously.
func (h *HTTPHandler) Evaluate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	header, err := c.FormFile("resume")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "resume is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume is required"})
		return
	}

	jdID, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("job_description_id")), 10, 0)
	if err != nil || jdID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_description_id is required"})
		return
	}

	if !allowedResumeTypes[strings.ToLower(filepath.Ext(header.Filename))] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume must be a .pdf, .docx or .txt file"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open resume"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read resume"})
		return
	}

	report, err := h.Evaluator.Evaluate(c.Request.Context(), usecase.Submission{
		Name:             c.PostForm("name"),
		Email:            c.PostForm("email"),
		JobDescriptionID: uint(jdID),
		ResumeName:       header.Filename,
		Resume:           data,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.present().report(report))
}

// ListEvaluations serves the history view: ?job_description_id=&sort=&q=
func (h *HTTPHandler) ListEvaluations(c *gin.Context) {
	q := usecase.HistoryQuery{
		Sort:   domain.ParseSortOrder(c.Query("sort")),
		Search: c.Query("q"),
	}

	if raw := strings.TrimSpace(c.Query("job_description_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_description_id"})
			return
		}
		jdID := uint(id)
		q.JobDescriptionID = &jdID
	}

	evals, err := h.History.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present().evaluations(evals))
}

func (h *HTTPHandler) DownloadResume(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	e, err := h.Store.GetEvaluation(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(e.ResumeName)))
	if contentType == "" {
		contentType = http.DetectContentType(e.ResumeBlob)
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.ResumeName}))
	c.Data(http.StatusOK, contentType, e.ResumeBlob)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// writeError maps domain errors onto HTTP status codes.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForeignKey):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTitle), errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, domain.ErrModelCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
