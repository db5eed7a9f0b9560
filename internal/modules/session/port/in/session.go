package in

import (
	"context"

	"habitkit/internal/modules/session/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	Complete(ctx context.Context, input dto.CompleteInput) (dto.CompleteOutput, error)
	Cancel(ctx context.Context, input dto.CancelInput) (dto.CancelOutput, error)
	GetActive(ctx context.Context, input dto.GetActiveInput) (dto.ActiveSessionOutput, error)
	ListInProgress(ctx context.Context) ([]dto.InProgressOutput, error)
	ExportReflections(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error)
}
