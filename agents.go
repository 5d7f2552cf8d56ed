package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const reviewerAgentName = "resume reviewer"

func GetAgent(ctx context.Context, apiKey, modelName string) (agent.Agent, error) {
	model, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	reviewer, err := llmagent.New(llmagent.Config{
		Name:        reviewerAgentName,
		Model:       model,
		Description: "Review a resume against a job description",
		Instruction: prompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return reviewer, nil
}

// agentReviewer runs each review in its own short lived agent session.
type agentReviewer struct {
	runner   *runner.Runner
	sessions session.Service
}

func newAgentReviewer(ctx context.Context, apiKey, modelName string) (*agentReviewer, error) {
	reviewer, err := GetAgent(ctx, apiKey, modelName)
	if err != nil {
		return nil, err
	}
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        reviewer.Name(),
		Agent:          reviewer,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &agentReviewer{runner: r, sessions: sessions}, nil
}

func (a *agentReviewer) Review(ctx context.Context, sessionID, jobDescription, resumeText string) (string, error) {
	created, err := a.sessions.Create(ctx, &session.CreateRequest{
		AppName:   reviewerAgentName,
		UserID:    sessionID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent session: %w", err)
	}
	defer a.sessions.Delete(ctx, &session.DeleteRequest{
		AppName:   created.Session.AppName(),
		UserID:    created.Session.UserID(),
		SessionID: created.Session.ID(),
	})

	msg := fmt.Sprintf("Job Description:\n%s\n\nResume:\n%s", jobDescription, resumeText)
	stream := a.runner.Run(ctx, created.Session.UserID(), created.Session.ID(), &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: msg},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", err
		}
		if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}
	output = CleanJson(output)
	if output == "" {
		return "", fmt.Errorf("empty agent response")
	}
	return output, nil
}
