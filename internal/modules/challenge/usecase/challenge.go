package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"habitkit/internal/modules/challenge/domain"
	"habitkit/internal/modules/challenge/dto"
	challengein "habitkit/internal/modules/challenge/port/in"
	challengeout "habitkit/internal/modules/challenge/port/out"
	apperrors "habitkit/internal/platform/errors"
)

// Interactor serves challenge metadata from an in-memory snapshot of the
// catalog source. The snapshot is loaded lazily and replaced on Reload.
type Interactor struct {
	source challengeout.CatalogSource
	logger *slog.Logger

	mu     sync.RWMutex
	loaded bool
	byID   map[string]domain.Challenge
}

func NewInteractor(source challengeout.CatalogSource, logger *slog.Logger) challengein.Usecase {
	return &Interactor{source: source, logger: logger}
}

func (i *Interactor) Get(ctx context.Context, id string) (dto.ChallengeOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dto.ChallengeOutput{}, fmt.Errorf("%w: challenge id is required", apperrors.ErrInvalidInput)
	}
	byID, err := i.snapshot(ctx)
	if err != nil {
		return dto.ChallengeOutput{}, err
	}
	c, ok := byID[id]
	if !ok {
		return dto.ChallengeOutput{}, fmt.Errorf("challenge %s: %w", id, apperrors.ErrNotFound)
	}
	return toOutput(c), nil
}

func (i *Interactor) List(ctx context.Context) ([]dto.ChallengeOutput, error) {
	byID, err := i.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ChallengeOutput, 0, len(byID))
	for _, c := range byID {
		out = append(out, toOutput(c))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (i *Interactor) Reload(ctx context.Context) error {
	challenges, err := i.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	byID, err := domain.Index(challenges)
	if err != nil {
		return fmt.Errorf("index catalog: %w", err)
	}
	i.mu.Lock()
	i.byID = byID
	i.loaded = true
	i.mu.Unlock()
	return nil
}

// Watch reloads the snapshot whenever the source changes. A broken edit
// keeps the previous snapshot.
func (i *Interactor) Watch(ctx context.Context) error {
	return i.source.Watch(ctx, func() {
		if err := i.Reload(ctx); err != nil {
			i.logger.Warn("catalog reload failed, keeping previous snapshot", "error", err)
			return
		}
		i.logger.Info("catalog reloaded")
	})
}

func (i *Interactor) snapshot(ctx context.Context) (map[string]domain.Challenge, error) {
	i.mu.RLock()
	loaded, byID := i.loaded, i.byID
	i.mu.RUnlock()
	if loaded {
		return byID, nil
	}
	if err := i.Reload(ctx); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.byID, nil
}

func toOutput(c domain.Challenge) dto.ChallengeOutput {
	questions := make([]string, len(c.ReflectionQuestions))
	copy(questions, c.ReflectionQuestions)
	return dto.ChallengeOutput{
		ID:                  c.ID,
		Title:               c.Title,
		Description:         c.Description,
		Points:              c.Points,
		DurationDays:        c.DurationDays,
		ReflectionQuestions: questions,
	}
}
