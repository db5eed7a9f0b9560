package in

import (
	"context"

	challengedto "habitkit/internal/modules/challenge/dto"
	challengein "habitkit/internal/modules/challenge/port/in"
)

type CLIHandler struct {
	usecase challengein.Usecase
}

func NewCLIHandler(usecase challengein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]challengedto.ChallengeOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Get(ctx context.Context, id string) (challengedto.ChallengeOutput, error) {
	return h.usecase.Get(ctx, id)
}
