package dto

import "time"

type StartInput struct {
	ChallengeID string `validate:"required"`
}

type StartOutput struct {
	Session SessionOutput
	// Created is false when an existing active session was returned.
	Created bool
}

type CompleteInput struct {
	ChallengeID       string `validate:"required"`
	PostedAnonymously bool
	Answers           map[string]string
}

// CompleteOutput states which parts of a completion were applied. The
// reflection is always recorded on success; deactivating the session row is
// best-effort and repaired later by the in-progress listing.
type CompleteOutput struct {
	ReflectionID       string
	SessionID          string
	SessionDeactivated bool
	CompletedAt        time.Time
}

type CancelInput struct {
	ChallengeID string `validate:"required"`
}

type CancelOutput struct {
	Cancelled bool
}

type GetActiveInput struct {
	ChallengeID string `validate:"required"`
}

type ActiveSessionOutput struct {
	Found   bool
	Session SessionOutput
}

type SessionOutput struct {
	ID                string
	UserID            string
	ChallengeID       string
	StartedAt         time.Time
	CompletedAt       *time.Time
	IsActive          bool
	PostedAnonymously bool
}

type InProgressOutput struct {
	SessionID      string
	ChallengeID    string
	ChallengeTitle string
	Points         int
	StartedAt      time.Time
	// Placeholder is set when the challenge is missing from the catalog.
	Placeholder bool
}

type ExportInput struct {
	ChallengeID string
}

type ExportOutput struct {
	Paths []string
}
