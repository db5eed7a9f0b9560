package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"habitkit/internal/modules/session/domain"
	sessiondto "habitkit/internal/modules/session/dto"
	sessionin "habitkit/internal/modules/session/port/in"
	sessionout "habitkit/internal/modules/session/port/out"
	"habitkit/internal/modules/session/service"
	apperrors "habitkit/internal/platform/errors"
	"habitkit/internal/platform/logging"
)

const (
	opStart      = "start"
	opComplete   = "complete"
	opCancel     = "cancel"
	opGetActive  = "get_active"
	opInProgress = "list_in_progress"
	opExport     = "export"
)

// Deps are the collaborators of the session interactor. Notifier, Recorder
// and Journal are optional.
type Deps struct {
	Lifecycle  *service.LifecycleService
	Reconciler *service.Reconciler
	Reflection sessionout.ReflectionStore
	Identity   sessionout.Identity
	Challenges sessionout.ChallengeLookup
	Notifier   sessionout.Notifier
	Recorder   sessionout.Recorder
	Journal    sessionout.JournalWriter
	Logger     *slog.Logger
}

type Interactor struct {
	Deps
	validate *validator.Validate
}

func NewInteractor(deps Deps) sessionin.Usecase {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Interactor{Deps: deps, validate: validator.New()}
}

func (i *Interactor) Start(ctx context.Context, input sessiondto.StartInput) (out sessiondto.StartOutput, err error) {
	outcome := ""
	defer func() { i.observe(opStart, outcome, err) }()

	userID, err := i.authenticate(ctx)
	if err != nil {
		return sessiondto.StartOutput{}, err
	}
	if err := i.check(input); err != nil {
		return sessiondto.StartOutput{}, err
	}
	res, err := i.Lifecycle.Start(ctx, userID, input.ChallengeID)
	if err != nil {
		return sessiondto.StartOutput{}, err
	}
	outcome = string(res.Outcome)
	i.notify(ctx, userID)
	return sessiondto.StartOutput{Session: toOutput(res.Session), Created: res.Outcome == service.StartCreated}, nil
}

func (i *Interactor) Complete(ctx context.Context, input sessiondto.CompleteInput) (out sessiondto.CompleteOutput, err error) {
	outcome := ""
	defer func() { i.observe(opComplete, outcome, err) }()

	userID, err := i.authenticate(ctx)
	if err != nil {
		return sessiondto.CompleteOutput{}, err
	}
	if err := i.check(input); err != nil {
		return sessiondto.CompleteOutput{}, err
	}
	res, err := i.Lifecycle.Complete(ctx, userID, input.ChallengeID, input.PostedAnonymously, input.Answers)
	if err != nil {
		return sessiondto.CompleteOutput{}, err
	}
	outcome = "completed"
	if !res.SessionDeactivated {
		outcome = "reflection_only"
	}
	i.notify(ctx, userID)
	return sessiondto.CompleteOutput{
		ReflectionID:       res.Reflection.ID,
		SessionID:          res.SessionID,
		SessionDeactivated: res.SessionDeactivated,
		CompletedAt:        res.Reflection.CreatedAt,
	}, nil
}

func (i *Interactor) Cancel(ctx context.Context, input sessiondto.CancelInput) (out sessiondto.CancelOutput, err error) {
	outcome := ""
	defer func() { i.observe(opCancel, outcome, err) }()

	userID, ok := i.Identity.CurrentUserID(ctx)
	if !ok {
		outcome = "anonymous"
		return sessiondto.CancelOutput{}, nil
	}
	if err := i.check(input); err != nil {
		return sessiondto.CancelOutput{}, err
	}
	removed, err := i.Lifecycle.Cancel(ctx, userID, input.ChallengeID)
	if err != nil {
		return sessiondto.CancelOutput{}, err
	}
	outcome = "not_found"
	if removed {
		outcome = "cancelled"
		i.notify(ctx, userID)
	}
	return sessiondto.CancelOutput{Cancelled: removed}, nil
}

func (i *Interactor) GetActive(ctx context.Context, input sessiondto.GetActiveInput) (out sessiondto.ActiveSessionOutput, err error) {
	outcome := ""
	defer func() { i.observe(opGetActive, outcome, err) }()

	userID, ok := i.Identity.CurrentUserID(ctx)
	if !ok {
		outcome = "anonymous"
		return sessiondto.ActiveSessionOutput{}, nil
	}
	if err := i.check(input); err != nil {
		return sessiondto.ActiveSessionOutput{}, err
	}
	active, found, err := i.Lifecycle.GetActive(ctx, userID, input.ChallengeID)
	if err != nil {
		return sessiondto.ActiveSessionOutput{}, err
	}
	if !found {
		outcome = "not_found"
		return sessiondto.ActiveSessionOutput{}, nil
	}
	outcome = "found"
	return sessiondto.ActiveSessionOutput{Found: true, Session: toOutput(active)}, nil
}

// ListInProgress reconciles before answering, so sessions whose completion
// was only half applied never show up as running.
func (i *Interactor) ListInProgress(ctx context.Context) (out []sessiondto.InProgressOutput, err error) {
	outcome := ""
	defer func() { i.observe(opInProgress, outcome, err) }()

	userID, ok := i.Identity.CurrentUserID(ctx)
	if !ok {
		outcome = "anonymous"
		return []sessiondto.InProgressOutput{}, nil
	}
	sessions, removed, err := i.Reconciler.InProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if removed > 0 && i.Recorder != nil {
		i.Recorder.ObserveReconciled(removed)
	}

	out = make([]sessiondto.InProgressOutput, 0, len(sessions))
	for _, s := range sessions {
		info, placeholder := i.challenge(ctx, s.ChallengeID)
		out = append(out, sessiondto.InProgressOutput{
			SessionID:      s.ID,
			ChallengeID:    s.ChallengeID,
			ChallengeTitle: info.Title,
			Points:         info.Points,
			StartedAt:      s.StartedAt,
			Placeholder:    placeholder,
		})
	}
	outcome = "listed"
	return out, nil
}

// ExportReflections writes the user's reflections to the journal.
func (i *Interactor) ExportReflections(ctx context.Context, input sessiondto.ExportInput) (out sessiondto.ExportOutput, err error) {
	outcome := ""
	defer func() { i.observe(opExport, outcome, err) }()

	userID, err := i.authenticate(ctx)
	if err != nil {
		return sessiondto.ExportOutput{}, err
	}
	if i.Journal == nil {
		return sessiondto.ExportOutput{}, fmt.Errorf("journal is not configured")
	}
	reflections, err := i.Reflection.List(ctx, userID, input.ChallengeID)
	if err != nil {
		return sessiondto.ExportOutput{}, err
	}
	out.Paths = make([]string, 0, len(reflections))
	for _, r := range reflections {
		info, _ := i.challenge(ctx, r.ChallengeID)
		path, err := i.Journal.Write(ctx, r, info)
		if err != nil {
			return out, fmt.Errorf("export reflection %s: %w", r.ID, err)
		}
		out.Paths = append(out.Paths, path)
	}
	outcome = "exported"
	return out, nil
}

func (i *Interactor) authenticate(ctx context.Context) (string, error) {
	userID, ok := i.Identity.CurrentUserID(ctx)
	if !ok {
		return "", apperrors.ErrUnauthenticated
	}
	return userID, nil
}

func (i *Interactor) check(input any) error {
	if err := i.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is %s", apperrors.ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

// challenge returns display metadata, falling back to a placeholder when the
// challenge is gone or the catalog cannot be read.
func (i *Interactor) challenge(ctx context.Context, challengeID string) (domain.ChallengeInfo, bool) {
	if i.Challenges == nil {
		return domain.PlaceholderChallenge(challengeID), true
	}
	info, ok, err := i.Challenges.Lookup(ctx, challengeID)
	if err != nil {
		i.Logger.Warn("challenge lookup failed", "challenge_id", challengeID, "error", err)
		return domain.PlaceholderChallenge(challengeID), true
	}
	if !ok {
		return domain.PlaceholderChallenge(challengeID), true
	}
	return info, false
}

func (i *Interactor) notify(ctx context.Context, userID string) {
	if i.Notifier != nil {
		i.Notifier.SessionsChanged(ctx, userID)
	}
}

func (i *Interactor) observe(op, outcome string, err error) {
	if err != nil {
		outcome = apperrors.Kind(err)
		i.Logger.Debug("session operation failed", "operation", op, "outcome", outcome, "error", err)
	}
	if i.Recorder != nil {
		i.Recorder.ObserveOperation(op, outcome)
	}
}

func toOutput(s domain.Session) sessiondto.SessionOutput {
	return sessiondto.SessionOutput{
		ID:                s.ID,
		UserID:            s.UserID,
		ChallengeID:       s.ChallengeID,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		IsActive:          s.IsActive,
		PostedAnonymously: s.PostedAnonymously,
	}
}
