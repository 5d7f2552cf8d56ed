package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumeparser/internal/config"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	ordered := make([]testFile, 0, len(files))
	for name, content := range files {
		ordered = append(ordered, testFile{name, content})
	}
	return orderedMultipartBody(t, fields, ordered...)
}

func orderedMultipartBody(t *testing.T, fields map[string]string, files ...testFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, form.WriteField(k, v))
	}
	for _, f := range files {
		part, err := form.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	return body, form.FormDataContentType()
}

func postForm(router http.Handler, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(cfg *config.Config, w *WorkerConfig, async bool) http.Handler {
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 8
	}
	return SetupRouter(cfg, NewHandler(w, async))
}

func TestHome(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Backend is live"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseResumes(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, false)

	body, contentType := multipartBody(t,
		map[string]string{"job_description": testJD},
		map[string]string{
			"strong.txt": testJD + " 3 yrs",
			"broken.pdf": "not really a pdf",
		})
	req := httptest.NewRequest(http.MethodPost, "/parse-resumes/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var results []matcher.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)

	byName := map[string]matcher.Result{}
	for _, r := range results {
		byName[r.Filename] = r
		assert.NotEmpty(t, r.JobKeywords)
	}
	assert.Equal(t, 100.0, byName["strong.txt"].MatchScore)
	assert.Equal(t, 3, byName["strong.txt"].Experience)
	assert.Equal(t, matcher.Eligible, byName["strong.txt"].Eligibility)
	assert.NotEmpty(t, byName["broken.pdf"].Error)
	assert.Equal(t, matcher.NotEligible, byName["broken.pdf"].Eligibility)
}

func TestParseResumesKeepsUploadOrder(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, false)

	names := []string{"zeta.txt", "alpha.pdf", "mid.txt", "beta.txt", "aardvark.txt"}
	files := make([]testFile, 0, len(names))
	for _, n := range names {
		files = append(files, testFile{n, "golang kafka"})
	}
	body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD}, files...)
	rec := postForm(router, "/parse-resumes/", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var results []matcher.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, len(names))
	for i, n := range names {
		assert.Equal(t, n, results[i].Filename)
	}
}

func TestUploadLimit(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{MaxUploadMB: 1}, w, false)

	t.Run("declared length over the limit", func(t *testing.T) {
		body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD},
			testFile{"big.txt", strings.Repeat("a", 2<<20)})
		rec := postForm(router, "/parse-resumes/", body, contentType)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unknown length over the limit", func(t *testing.T) {
		body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD},
			testFile{"big.txt", strings.Repeat("a", 2<<20)})
		req := httptest.NewRequest(http.MethodPost, "/parse-resumes/", io.NopCloser(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("under the limit", func(t *testing.T) {
		body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD},
			testFile{"small.txt", "golang"})
		rec := postForm(router, "/parse-resumes/", body, contentType)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateSessionUploadFailure(t *testing.T) {
	t.Run("storage error", func(t *testing.T) {
		w, store, storage, broker := newTestWorker()
		storage.uploadErr = errors.New("r2 down")
		router := newTestRouter(&config.Config{}, w, true)

		body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD},
			testFile{"a.txt", "golang"})
		rec := postForm(router, "/sessions", body, contentType)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, broker.queued)
		require.Len(t, store.sessions, 1)
		for _, s := range store.sessions {
			assert.Equal(t, StatusFailed, s.Status)
		}
	})

	t.Run("resume row error after the first file", func(t *testing.T) {
		w, store, _, broker := newTestWorker()
		store.resumeErr = errors.New("db down")
		store.resumeLimit = 1
		router := newTestRouter(&config.Config{}, w, true)

		body, contentType := orderedMultipartBody(t, map[string]string{"job_description": testJD},
			testFile{"a.txt", "golang"}, testFile{"b.txt", "kafka"})
		rec := postForm(router, "/sessions", body, contentType)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, broker.queued)
		for _, s := range store.sessions {
			assert.Equal(t, StatusFailed, s.Status)
		}
		require.NotEmpty(t, broker.updates)
		assert.Equal(t, StatusFailed, broker.updates[len(broker.updates)-1].Status)
	})
}

func TestParseResumesValidation(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, false)

	t.Run("missing files", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"job_description": testJD}, nil)
		req := httptest.NewRequest(http.MethodPost, "/parse-resumes/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Add job description and resumes")
	})

	t.Run("missing job description", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, map[string]string{"a.txt": "golang"})
		req := httptest.NewRequest(http.MethodPost, "/parse-resumes/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "super-secret-jwt-key-for-testing-only"
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{SupabaseJWTSecret: secret}, w, false)

	send := func(token string) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, map[string]string{"job_description": testJD}, map[string]string{"a.txt": "golang"})
		req := httptest.NewRequest(http.MethodPost, "/parse-resumes/", body)
		req.Header.Set("Content-Type", contentType)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, send("").Code)
	assert.Equal(t, http.StatusUnauthorized, send("garbage").Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, send(token).Code)

	// the landing route stays public
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsDisabled(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateAndGetSession(t *testing.T) {
	w, store, storage, broker := newTestWorker()
	router := newTestRouter(&config.Config{}, w, true)

	body, contentType := multipartBody(t,
		map[string]string{"job_description": testJD, "name": "backend hiring", "job_title": "Backend Engineer"},
		map[string]string{"cv.txt": testJD})
	req := httptest.NewRequest(http.MethodPost, "/sessions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var created Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "Backend Engineer", created.JobTitle)

	require.Len(t, broker.queued, 1)
	assert.Equal(t, created.ID, broker.queued[0].ID)
	require.Len(t, store.resumes, 1)
	assert.Equal(t, mimeText, store.resumes[0].Mime)
	assert.Contains(t, storage.objects, store.resumes[0].ObjectKey)

	get := func() SessionResponse {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID.String(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := get()
	assert.Empty(t, resp.Results)

	// run the queued session through the worker path
	queued, _ := json.Marshal(broker.queued[0])
	require.NoError(t, w.handleMessage(req.Context(), 0, queued))

	resp = get()
	assert.Equal(t, StatusCompleted, resp.Session.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 100.0, resp.Results[0].MatchScore)
}

func TestGetSessionErrors(t *testing.T) {
	w, _, _, _ := newTestWorker()
	router := newTestRouter(&config.Config{}, w, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
