package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/repos"
	"github.com/wavenote/wavenote-backend/internal/types"
)

var (
	ErrNoEmailAvailable     = errors.New("no email available for subject")
	ErrReconciliationFailed = errors.New("reconciliation failed")
)

const fallbackName = "New User"

type ReconcileOutcome string

const (
	OutcomeCreated   ReconcileOutcome = "created"
	OutcomeUpdated   ReconcileOutcome = "updated"
	OutcomeUnchanged ReconcileOutcome = "unchanged"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome
	User    *types.User
}

// ReconcilerService keeps the local user row eventually consistent with the
// identity provider's view of a subject. Reconcile serves the async webhook
// path, ReconcileFromPrincipal the client-driven manual path; both are
// idempotent per subject under at-least-once delivery.
type ReconcilerService interface {
	Reconcile(ctx context.Context, ev *types.IdentityEvent) (*ReconcileResult, error)
	ReconcileFromPrincipal(ctx context.Context, subjectID, email, name string) (*ReconcileResult, error)
}

type reconcilerService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	now      func() time.Time
}

func NewReconcilerService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) ReconcilerService {
	serviceLog := log.With("service", "ReconcilerService")
	return &reconcilerService{
		db:       db,
		log:      serviceLog,
		userRepo: userRepo,
		now:      time.Now,
	}
}

func (rs *reconcilerService) Reconcile(ctx context.Context, ev *types.IdentityEvent) (*ReconcileResult, error) {
	if ev == nil || ev.SubjectID == "" {
		return nil, fmt.Errorf("%w: event has no subject", ErrReconciliationFailed)
	}
	email, err := deriveEmail(ev)
	if err != nil {
		// Degrade, don't fail: a synthetic address keeps the row usable for
		// foreign keys until the provider supplies a real one.
		email = placeholderEmail(ev.SubjectID)
		rs.log.Warn("Subject has no email candidates, using placeholder", "subject_id", ev.SubjectID)
	}
	name := deriveName(ev)
	return rs.upsert(ctx, ev.SubjectID, email, name)
}

func (rs *reconcilerService) ReconcileFromPrincipal(ctx context.Context, subjectID, email, name string) (*ReconcileResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: principal has no subject id", ErrReconciliationFailed)
	}
	email = normalizeEmail(email)
	if email == "" {
		email = placeholderEmail(subjectID)
		rs.log.Warn("Principal has no email, using placeholder", "subject_id", subjectID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallbackName
	}
	return rs.upsert(ctx, subjectID, email, name)
}

func (rs *reconcilerService) upsert(ctx context.Context, subjectID, email, name string) (*ReconcileResult, error) {
	existing, err := rs.getByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return rs.create(ctx, subjectID, email, name)
	}
	return rs.updateOrNoop(ctx, existing, email, name)
}

func (rs *reconcilerService) create(ctx context.Context, subjectID, email, name string) (*ReconcileResult, error) {
	user := &types.User{
		ID:    subjectID,
		Email: email,
		Name:  nameOrNil(name),
	}
	_, err := rs.userRepo.Create(ctx, nil, []*types.User{user})
	if err == nil {
		rs.log.Info("User created", "subject_id", subjectID)
		return &ReconcileResult{Outcome: OutcomeCreated, User: user}, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Duplicate key is ambiguous: either another delivery won the id race, or
	// a different subject already owns this email.
	raced, lookupErr := rs.getByID(ctx, subjectID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if raced != nil {
		return rs.updateOrNoop(ctx, raced, email, name)
	}

	user.Email = rs.disambiguateEmail(email)
	rs.log.Warn("Email already owned by another subject, retrying with disambiguated address",
		"subject_id", subjectID, "email", user.Email)
	if _, retryErr := rs.userRepo.Create(ctx, nil, []*types.User{user}); retryErr != nil {
		rs.log.Error("Disambiguated create failed", "subject_id", subjectID, "error", retryErr)
		return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, retryErr)
	}
	return &ReconcileResult{Outcome: OutcomeCreated, User: user}, nil
}

func (rs *reconcilerService) updateOrNoop(ctx context.Context, existing *types.User, email, name string) (*ReconcileResult, error) {
	if existing.Email == email && existing.Name != nil && *existing.Name == name {
		return &ReconcileResult{Outcome: OutcomeUnchanged, User: existing}, nil
	}
	if existing.Email == email && existing.Name == nil && name == "" {
		return &ReconcileResult{Outcome: OutcomeUnchanged, User: existing}, nil
	}

	updated := *existing
	updated.Email = email
	updated.Name = nameOrNil(name)
	err := rs.userRepo.Update(ctx, nil, &updated)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		updated.Email = rs.disambiguateEmail(email)
		rs.log.Warn("Email already owned by another subject, updating with disambiguated address",
			"subject_id", existing.ID, "email", updated.Email)
		err = rs.userRepo.Update(ctx, nil, &updated)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	rs.log.Info("User updated", "subject_id", existing.ID)
	refreshed, lookupErr := rs.getByID(ctx, existing.ID)
	if lookupErr != nil || refreshed == nil {
		refreshed = &updated
	}
	return &ReconcileResult{Outcome: OutcomeUpdated, User: refreshed}, nil
}

func (rs *reconcilerService) getByID(ctx context.Context, subjectID string) (*types.User, error) {
	users, err := rs.userRepo.GetByIDs(ctx, nil, []string{subjectID})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

// disambiguateEmail inserts a timestamp suffix before the "@" so the retry
// stays a deliverable-looking address.
func (rs *reconcilerService) disambiguateEmail(email string) string {
	ts := rs.now().Unix()
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return fmt.Sprintf("%s+%d", email, ts)
	}
	return fmt.Sprintf("%s+%d%s", email[:at], ts, email[at:])
}

func deriveEmail(ev *types.IdentityEvent) (string, error) {
	if len(ev.EmailCandidates) == 0 {
		return "", ErrNoEmailAvailable
	}
	if ev.PrimaryEmailID != "" {
		for _, candidate := range ev.EmailCandidates {
			if candidate.ID == ev.PrimaryEmailID {
				return normalizeEmail(candidate.Address), nil
			}
		}
	}
	return normalizeEmail(ev.EmailCandidates[0].Address), nil
}

func deriveName(ev *types.IdentityEvent) string {
	if ev.GivenName != "" && ev.FamilyName != "" {
		return ev.GivenName + " " + ev.FamilyName
	}
	if ev.Handle != "" {
		return ev.Handle
	}
	return fallbackName
}

func placeholderEmail(subjectID string) string {
	return subjectID + "@example.invalid"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nameOrNil(name string) *string {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return &name
}
