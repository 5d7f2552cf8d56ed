package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/muhammadolammi/resumeparser/internal/database"
	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

// scoreResume extracts, scores and optionally reviews one resume. Failures
// become an error card rather than failing the batch.
func (workerConfig *WorkerConfig) scoreResume(ctx context.Context, sessionID string, job matcher.Job, jobDescription, filename, mime string, data []byte) matcher.Result {
	text, err := ExtractResumeText(mime, data)
	if err != nil {
		workerConfig.Logger.Warn("text extraction failed", zap.String("filename", filename), zap.Error(err))
		return workerConfig.Matcher.Failed(job, filename, fmt.Errorf("text extraction error: %w", err))
	}

	result := workerConfig.Matcher.Score(job, filename, text)

	if workerConfig.Reviewer != nil && strings.TrimSpace(text) != "" {
		review, err := retry(2, func() (string, error) {
			return workerConfig.Reviewer.Review(ctx, sessionID, jobDescription, text)
		})
		if err != nil {
			workerConfig.Logger.Warn("review failed", zap.String("filename", filename), zap.Error(err))
		} else {
			result.Review = review
		}
	}
	return result
}

// processSession scores every stored resume of a queued session and saves
// the results.
func (workerConfig *WorkerConfig) processSession(ctx context.Context, currentSession Session) error {
	resumes, err := workerConfig.DB.GetResumesBySession(ctx, currentSession.ID)
	if err != nil {
		return fmt.Errorf("error getting resumes for session: %v, err: %w", currentSession.ID, err)
	}

	job := workerConfig.Matcher.PrepareJob(currentSession.JobDescription)
	results := &AnalysesResults{
		SessionID: currentSession.ID,
		Results:   []matcher.Result{},
	}

	for _, resume := range resumes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("session interrupted: %w", err)
		}
		fileBytes, err := retry(3, func() ([]byte, error) {
			return workerConfig.Storage.Download(ctx, resume.ObjectKey)
		})
		if err != nil {
			workerConfig.Logger.Warn("download failed", zap.String("object_key", resume.ObjectKey), zap.Error(err))
			results.Results = append(results.Results,
				workerConfig.Matcher.Failed(job, resume.OriginalFilename, fmt.Errorf("file download error: %w", err)))
			continue
		}

		results.Results = append(results.Results, workerConfig.scoreResume(ctx, currentSession.ID.String(), job,
			currentSession.JobDescription, resume.OriginalFilename, resume.Mime, fileBytes))
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("session interrupted: %w", err)
	}
	resultsJSON, err := json.Marshal(results.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal analyses results: %w", err)
	}

	_, err = retry(3, func() (any, error) {
		return nil, workerConfig.DB.CreateOrUpdateAnalysesResults(ctx, database.CreateOrUpdateAnalysesResultsParams{
			Results:   resultsJSON,
			SessionID: results.SessionID,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save results after retries: %w", err)
	}

	workerConfig.Logger.Info("session analyzed",
		zap.String("session_id", currentSession.ID.String()),
		zap.Int("resumes", len(resumes)))
	return nil
}

// setStatus records status in the database and announces it on the updates
// exchange. Both are best effort and outlive cancellation of ctx.
func (workerConfig *WorkerConfig) setStatus(ctx context.Context, currentSession Session, status, message string) {
	ctx = context.WithoutCancel(ctx)
	err := workerConfig.DB.UpdateSessionStatus(ctx, database.UpdateSessionStatusParams{
		Status: status,
		ID:     currentSession.ID,
	})
	if err != nil {
		workerConfig.Logger.Error("failed to update session status",
			zap.String("session_id", currentSession.ID.String()), zap.String("status", status), zap.Error(err))
	}

	update := SessionUpdate{
		SessionID: currentSession.ID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := workerConfig.Broker.PublishSessionUpdate(currentSession.ID.String(), update); err != nil {
		workerConfig.Logger.Error("failed to publish update", zap.Error(err))
	}
}

// errRequeue marks a session that was interrupted before it finished and
// should go back on the queue.
var errRequeue = errors.New("session interrupted")

// handleMessage runs one queued session through its status transitions. It
// returns errRequeue when ctx was cancelled mid-session; the session is then
// reset to pending.
func (workerConfig *WorkerConfig) handleMessage(ctx context.Context, workerID int, body []byte) error {
	currentSession := Session{}
	if err := json.Unmarshal(body, &currentSession); err != nil {
		workerConfig.Logger.Error("error unmarshalling message body", zap.Error(err))
		if currentSession.ID != uuid.Nil {
			workerConfig.setStatus(ctx, currentSession, StatusFailed, "analysis failed")
		}
		return nil
	}
	if ctx.Err() != nil {
		return errRequeue
	}
	workerConfig.Logger.Info("processing session",
		zap.Int("worker", workerID+1),
		zap.String("session_id", currentSession.ID.String()))

	workerConfig.setStatus(ctx, currentSession, StatusProcessing, "analysis started")

	if err := workerConfig.processSession(ctx, currentSession); err != nil {
		if ctx.Err() != nil {
			workerConfig.Logger.Warn("session interrupted, requeueing",
				zap.String("session_id", currentSession.ID.String()), zap.Error(err))
			workerConfig.setStatus(ctx, currentSession, StatusPending, "analysis interrupted")
			return errRequeue
		}
		workerConfig.Logger.Error("error analyzing session",
			zap.String("session_id", currentSession.ID.String()), zap.Error(err))
		workerConfig.setStatus(ctx, currentSession, StatusFailed, "analysis failed")
		return nil
	}
	workerConfig.setStatus(ctx, currentSession, StatusCompleted, "analysis completed")
	return nil
}

func (workerConfig *WorkerConfig) worker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		workerConfig.Logger.Error("error dialling rabbitmq", zap.Int("worker", id+1), zap.Error(err))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		workerConfig.Logger.Error("error opening rabbitmq channel", zap.Int("worker", id+1), zap.Error(err))
		return
	}
	defer ch.Close()

	if _, err := declareSessionsQueue(ch); err != nil {
		workerConfig.Logger.Error("failed to declare queue", zap.Error(err))
		return
	}
	if err := ch.Qos(1, 0, false); err != nil {
		workerConfig.Logger.Error("failed to set qos", zap.Error(err))
		return
	}

	msgs, err := ch.Consume(
		sessionsQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		workerConfig.Logger.Error("error consuming rabbitmq messages", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if errors.Is(workerConfig.handleMessage(ctx, id, msg.Body), errRequeue) {
				if err := msg.Nack(false, true); err != nil {
					workerConfig.Logger.Warn("failed to requeue message", zap.Error(err))
				}
				return
			}
			if err := msg.Ack(false); err != nil {
				workerConfig.Logger.Warn("failed to ack message", zap.Error(err))
			}
		}
	}
}

// StartConsumerWorkerPool blocks until ctx is cancelled and every worker has
// returned.
func (workerConfig *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		workerConfig.Logger.Info("worker started", zap.Int("worker", i+1))
		go workerConfig.worker(ctx, i, &wg)
	}
	wg.Wait()
}
