package in

import (
	"context"

	"habitkit/internal/modules/challenge/dto"
)

type Usecase interface {
	Get(ctx context.Context, id string) (dto.ChallengeOutput, error)
	List(ctx context.Context) ([]dto.ChallengeOutput, error)
	Reload(ctx context.Context) error
	Watch(ctx context.Context) error
}
