package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muhammadolammi/resumeparser/internal/database"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

type Handler struct {
	worker *WorkerConfig
	// async is false when the database, storage or broker is missing.
	async bool
}

func NewHandler(worker *WorkerConfig, async bool) *Handler {
	return &Handler{worker: worker, async: async}
}

func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend is live"})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "resumeparser",
		"async":     h.async,
		"timestamp": time.Now(),
	})
}

type upload struct {
	filename string
	mime     string
	data     []byte
}

// readForm pulls the job description and resume files out of a multipart
// request. It writes the error response itself and returns ok=false.
func readForm(c *gin.Context) (string, []upload, bool) {
	form, err := c.MultipartForm()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, uploadTooLarge(tooLarge.Limit))
		return "", nil, false
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid form",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return "", nil, false
	}

	jobDescription := strings.TrimSpace(c.PostForm("job_description"))
	var files []*multipart.FileHeader
	if form != nil {
		files = form.File["files"]
	}
	if jobDescription == "" || len(files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Add job description and resumes",
			Code:  "INVALID_REQUEST",
		})
		return "", nil, false
	}

	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Failed to read upload",
				Code:    "INVALID_REQUEST",
				Details: fmt.Sprintf("%s: %v", fh.Filename, err),
			})
			return "", nil, false
		}
		uploads = append(uploads, upload{
			filename: fh.Filename,
			mime:     DetectMime(fh.Filename, fh.Header.Get("Content-Type"), data),
			data:     data,
		})
	}
	return jobDescription, uploads, true
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ParseResumes handles POST /parse-resumes/
func (h *Handler) ParseResumes(c *gin.Context) {
	jobDescription, uploads, ok := readForm(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	requestID := uuid.NewString()
	job := h.worker.Matcher.PrepareJob(jobDescription)

	results := make([]matcher.Result, 0, len(uploads))
	for _, u := range uploads {
		results = append(results, h.worker.scoreResume(ctx, requestID, job, jobDescription, u.filename, u.mime, u.data))
	}

	h.worker.Logger.Info("resumes parsed",
		zap.String("request_id", requestID),
		zap.Int("resumes", len(results)),
		zap.Int("job_keywords", len(job.Keywords)))
	c.JSON(http.StatusOK, results)
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(c *gin.Context) {
	if !h.async {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Background sessions are not configured",
			Code:  "ASYNC_DISABLED",
		})
		return
	}
	jobDescription, uploads, ok := readForm(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	params := database.CreateSessionParams{
		Name:           c.PostForm("name"),
		Status:         StatusPending,
		JobTitle:       c.PostForm("job_title"),
		JobDescription: jobDescription,
	}
	if userID, ok := GetUserID(c); ok {
		params.UserID = uuid.NullUUID{UUID: userID, Valid: true}
	}
	created, err := h.worker.DB.CreateSession(ctx, params)
	if err != nil {
		h.internalError(c, "Failed to create session", err)
		return
	}
	session := sessionFromDB(created)

	for i, u := range uploads {
		key := path.Join("resumes", session.ID.String(), uuid.NewString()+"-"+path.Base(u.filename))
		if err := h.worker.Storage.Upload(ctx, key, u.mime, u.data); err != nil {
			h.worker.setStatus(ctx, session, StatusFailed, "upload failed")
			h.internalError(c, "Failed to store resume", err)
			return
		}
		_, err := h.worker.DB.CreateResume(ctx, database.CreateResumeParams{
			OriginalFilename: u.filename,
			Mime:             u.mime,
			SizeBytes:        int64(len(u.data)),
			StorageProvider:  h.worker.Storage.Provider(),
			ObjectKey:        key,
			UploadStatus:     "uploaded",
			Position:         int32(i),
			SessionID:        session.ID,
		})
		if err != nil {
			h.worker.setStatus(ctx, session, StatusFailed, "upload failed")
			h.internalError(c, "Failed to record resume", err)
			return
		}
	}

	if err := h.worker.Broker.EnqueueSession(ctx, session); err != nil {
		h.worker.setStatus(ctx, session, StatusFailed, "queueing failed")
		h.internalError(c, "Failed to queue session", err)
		return
	}
	c.JSON(http.StatusAccepted, session)
}

// GetSession handles GET /sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	if !h.async {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Background sessions are not configured",
			Code:  "ASYNC_DISABLED",
		})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid session id",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	ctx := c.Request.Context()

	stored, err := h.worker.DB.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Session not found",
			Code:  "NOT_FOUND",
		})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load session", err)
		return
	}

	resp := SessionResponse{Session: sessionFromDB(stored), Results: []matcher.Result{}}
	analyses, err := h.worker.DB.GetAnalysesResultsBySession(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		h.internalError(c, "Failed to load results", err)
		return
	default:
		if err := json.Unmarshal(analyses.Results, &resp.Results); err != nil {
			h.internalError(c, "Failed to decode results", err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) internalError(c *gin.Context, message string, err error) {
	h.worker.Logger.Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   message,
		Code:    "INTERNAL_ERROR",
		Details: err.Error(),
	})
}
