package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumeparser/internal/database"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

const testJD = "Backend engineer: Golang, Kafka, PostgreSQL and Kubernetes."

type testFile struct {
	name    string
	content string
}

func seedSession(t *testing.T, store *fakeStore, storage *fakeStorage, files ...testFile) Session {
	t.Helper()
	ctx := context.Background()
	created, err := store.CreateSession(ctx, database.CreateSessionParams{
		Status:         StatusPending,
		JobDescription: testJD,
	})
	require.NoError(t, err)

	for i, f := range files {
		key := "resumes/" + created.ID.String() + "/" + f.name
		if f.content != "" {
			require.NoError(t, storage.Upload(ctx, key, mimeText, []byte(f.content)))
		}
		_, err := store.CreateResume(ctx, database.CreateResumeParams{
			OriginalFilename: f.name,
			Mime:             mimeText,
			ObjectKey:        key,
			Position:         int32(i),
			SessionID:        created.ID,
		})
		require.NoError(t, err)
	}
	return sessionFromDB(created)
}

func TestHandleMessage(t *testing.T) {
	w, store, storage, broker := newTestWorker()
	session := seedSession(t, store, storage,
		testFile{"good.txt", testJD + " 4 years experience"},
		testFile{"missing.txt", ""},
	)

	body, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, w.handleMessage(context.Background(), 0, body))

	assert.Equal(t, []string{StatusProcessing, StatusCompleted}, store.statuses)
	require.Len(t, broker.updates, 2)
	assert.Equal(t, StatusCompleted, broker.updates[1].Status)
	assert.Equal(t, session.ID.String(), broker.routeIDs[0])

	var results []matcher.Result
	require.NoError(t, json.Unmarshal(store.results[session.ID], &results))
	require.Len(t, results, 2)

	byName := map[string]matcher.Result{}
	for _, r := range results {
		byName[r.Filename] = r
	}
	assert.Equal(t, 100.0, byName["good.txt"].MatchScore)
	assert.Equal(t, matcher.Eligible, byName["good.txt"].Eligibility)
	assert.Equal(t, 4, byName["good.txt"].Experience)
	assert.Contains(t, byName["missing.txt"].Error, "file download error")
	assert.Equal(t, matcher.NotEligible, byName["missing.txt"].Eligibility)
}

func TestHandleMessageKeepsUploadOrder(t *testing.T) {
	w, store, storage, _ := newTestWorker()
	names := []string{"zeta.txt", "alpha.txt", "mid.txt", "beta.txt"}
	files := make([]testFile, 0, len(names))
	for _, n := range names {
		files = append(files, testFile{n, "golang"})
	}
	session := seedSession(t, store, storage, files...)

	body, _ := json.Marshal(session)
	require.NoError(t, w.handleMessage(context.Background(), 0, body))

	var results []matcher.Result
	require.NoError(t, json.Unmarshal(store.results[session.ID], &results))
	require.Len(t, results, len(names))
	for i, n := range names {
		assert.Equal(t, n, results[i].Filename)
	}
}

func TestHandleMessageInterrupted(t *testing.T) {
	w, store, storage, broker := newTestWorker()
	session := seedSession(t, store, storage,
		testFile{"first.txt", "golang"},
		testFile{"second.txt", "kafka"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// shutdown arrives while the first resume is being scored
	storage.onDownload = cancel

	body, _ := json.Marshal(session)
	err := w.handleMessage(ctx, 0, body)

	assert.ErrorIs(t, err, errRequeue)
	assert.Equal(t, []string{StatusProcessing, StatusPending}, store.statuses)
	assert.Equal(t, StatusPending, store.sessions[session.ID].Status)
	assert.NotContains(t, store.results, session.ID)
	require.Len(t, broker.updates, 2)
	assert.Equal(t, "analysis interrupted", broker.updates[1].Message)
}

func TestHandleMessageAfterShutdown(t *testing.T) {
	w, store, storage, broker := newTestWorker()
	session := seedSession(t, store, storage, testFile{"a.txt", "golang"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body, _ := json.Marshal(session)
	assert.ErrorIs(t, w.handleMessage(ctx, 0, body), errRequeue)
	assert.Empty(t, store.statuses)
	assert.Empty(t, broker.updates)
}

func TestHandleMessageSaveFailure(t *testing.T) {
	w, store, storage, broker := newTestWorker()
	store.saveErr = errors.New("db down")
	session := seedSession(t, store, storage, testFile{"a.txt", "golang"})

	body, _ := json.Marshal(session)
	require.NoError(t, w.handleMessage(context.Background(), 0, body))

	assert.Equal(t, []string{StatusProcessing, StatusFailed}, store.statuses)
	require.Len(t, broker.updates, 2)
	assert.Equal(t, "analysis failed", broker.updates[1].Message)
}

func TestHandleMessageBadBody(t *testing.T) {
	w, store, _, broker := newTestWorker()
	require.NoError(t, w.handleMessage(context.Background(), 0, []byte("{not json")))

	assert.Empty(t, store.statuses)
	assert.Empty(t, broker.updates)
}

func TestScoreResumeWithReviewer(t *testing.T) {
	w, _, _, _ := newTestWorker()
	reviewer := &fakeReviewer{}
	w.Reviewer = reviewer

	job := w.Matcher.PrepareJob(testJD)
	res := w.scoreResume(context.Background(), uuid.NewString(), job, testJD, "cv.txt", mimeText, []byte("golang kafka"))
	assert.Equal(t, "solid match", res.Review)
	assert.Equal(t, 1, reviewer.calls)

	res = w.scoreResume(context.Background(), uuid.NewString(), job, testJD, "cv.png", "image/png", []byte{1})
	assert.Empty(t, res.Review)
	assert.Contains(t, res.Error, "unsupported file type")
	assert.Equal(t, 1, reviewer.calls)
}
