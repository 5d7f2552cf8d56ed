package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muhammadolammi/resumeparser/internal/database"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

// SessionStore is the slice of database.Queries the server and workers use.
type SessionStore interface {
	CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (database.Session, error)
	UpdateSessionStatus(ctx context.Context, arg database.UpdateSessionStatusParams) error
	CreateResume(ctx context.Context, arg database.CreateResumeParams) (database.Resume, error)
	GetResumesBySession(ctx context.Context, sessionID uuid.UUID) ([]database.Resume, error)
	CreateOrUpdateAnalysesResults(ctx context.Context, arg database.CreateOrUpdateAnalysesResultsParams) error
	GetAnalysesResultsBySession(ctx context.Context, sessionID uuid.UUID) (database.AnalysesResult, error)
}

type ObjectStorage interface {
	Upload(ctx context.Context, key, mime string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Provider() string
}

// Broker carries queued sessions to workers and status updates to clients.
type Broker interface {
	EnqueueSession(ctx context.Context, s Session) error
	PublishSessionUpdate(sessionID string, update SessionUpdate) error
}

// Reviewer writes a free-text note about a resume. It never changes scores.
type Reviewer interface {
	Review(ctx context.Context, sessionID, jobDescription, resumeText string) (string, error)
}

type WorkerConfig struct {
	DB          SessionStore
	Storage     ObjectStorage
	Broker      Broker
	RABBITMQUrl string
	Matcher     *matcher.Matcher
	Reviewer    Reviewer
	Logger      *zap.Logger
}

type AnalysesResults struct {
	ID        uuid.UUID        `json:"id"`
	Results   []matcher.Result `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
	SessionID uuid.UUID        `json:"session_id"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type Session struct {
	ID             uuid.UUID  `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	Name           string     `json:"name"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Status         string     `json:"status"`
	JobTitle       string     `json:"job_title"`
	JobDescription string     `json:"job_description"`
}

type SessionUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionResponse struct {
	Session Session          `json:"session"`
	Results []matcher.Result `json:"results"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func sessionFromDB(s database.Session) Session {
	out := Session{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		Name:           s.Name,
		Status:         s.Status,
		JobTitle:       s.JobTitle,
		JobDescription: s.JobDescription,
	}
	if s.UserID.Valid {
		id := s.UserID.UUID
		out.UserID = &id
	}
	return out
}
