package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AnalysesResult struct {
	ID        uuid.UUID
	Results   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
	SessionID uuid.UUID
}

type Resume struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	StorageUrl       string
	UploadStatus     string
	Position         int32
	CreatedAt        time.Time
	SessionID        uuid.UUID
}

type Session struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Name           string
	UserID         uuid.NullUUID
	Status         string
	JobTitle       string
	JobDescription string
}
