package in

import (
	"context"

	sessiondto "habitkit/internal/modules/session/dto"
	sessionin "habitkit/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context, challengeID string) (sessiondto.StartOutput, error) {
	return h.usecase.Start(ctx, sessiondto.StartInput{ChallengeID: challengeID})
}

func (h CLIHandler) Complete(ctx context.Context, challengeID string, anonymous bool, answers map[string]string) (sessiondto.CompleteOutput, error) {
	return h.usecase.Complete(ctx, sessiondto.CompleteInput{ChallengeID: challengeID, PostedAnonymously: anonymous, Answers: answers})
}

func (h CLIHandler) Cancel(ctx context.Context, challengeID string) (sessiondto.CancelOutput, error) {
	return h.usecase.Cancel(ctx, sessiondto.CancelInput{ChallengeID: challengeID})
}

func (h CLIHandler) GetActive(ctx context.Context, challengeID string) (sessiondto.ActiveSessionOutput, error) {
	return h.usecase.GetActive(ctx, sessiondto.GetActiveInput{ChallengeID: challengeID})
}

func (h CLIHandler) ListInProgress(ctx context.Context) ([]sessiondto.InProgressOutput, error) {
	return h.usecase.ListInProgress(ctx)
}

func (h CLIHandler) Export(ctx context.Context, challengeID string) (sessiondto.ExportOutput, error) {
	return h.usecase.ExportReflections(ctx, sessiondto.ExportInput{ChallengeID: challengeID})
}
