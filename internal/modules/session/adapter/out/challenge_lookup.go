package out

import (
	"context"
	"errors"

	challengein "habitkit/internal/modules/challenge/port/in"
	"habitkit/internal/modules/session/domain"
	apperrors "habitkit/internal/platform/errors"
)

// CatalogLookup resolves challenge display data from the challenge module.
type CatalogLookup struct {
	challenges challengein.Usecase
}

func NewCatalogLookup(challenges challengein.Usecase) CatalogLookup {
	return CatalogLookup{challenges: challenges}
}

func (l CatalogLookup) Lookup(ctx context.Context, challengeID string) (domain.ChallengeInfo, bool, error) {
	c, err := l.challenges.Get(ctx, challengeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.ChallengeInfo{}, false, nil
	}
	if err != nil {
		return domain.ChallengeInfo{}, false, err
	}
	return domain.ChallengeInfo{
		ID:                  c.ID,
		Title:               c.Title,
		Points:              c.Points,
		ReflectionQuestions: c.ReflectionQuestions,
	}, true, nil
}
