// Package apiclient uploads a job description and resumes to the parser
// service and decodes the score cards it returns.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

var (
	ErrMissingInput = errors.New("add job description and resumes")
	ErrBackendDown  = errors.New("backend not running")
)

// Upload is one resume file.
type Upload struct {
	Filename string
	Content  []byte
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// ReadUploads loads resume files from disk.
func ReadUploads(paths []string) ([]Upload, error) {
	uploads := make([]Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		uploads = append(uploads, Upload{Filename: filepath.Base(p), Content: data})
	}
	return uploads, nil
}

// ParseResumes posts the form to /parse-resumes/ and returns one result per
// upload.
func (c *Client) ParseResumes(ctx context.Context, jobDescription string, uploads []Upload) ([]matcher.Result, error) {
	if strings.TrimSpace(jobDescription) == "" || len(uploads) == 0 {
		return nil, ErrMissingInput
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	if err := form.WriteField("job_description", jobDescription); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	for _, u := range uploads {
		part, err := form.CreateFormFile("files", u.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to write form: %w", err)
		}
		if _, err := part.Write(u.Content); err != nil {
			return nil, fmt.Errorf("failed to write form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-resumes/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s - %s", ErrBackendDown, resp.Status, strings.TrimSpace(string(detail)))
	}

	var results []matcher.Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}
