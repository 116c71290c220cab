package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/repos"
	"github.com/wavenote/wavenote-backend/internal/requestdata"
	"github.com/wavenote/wavenote-backend/internal/types"
)

type UserService interface {
	// GetBySubject returns the local row for a provider subject, or nil when
	// the subject has not been provisioned yet. Absence is not an error; the
	// webhook path is expected to close the gap.
	GetBySubject(ctx context.Context, subjectID string) (*types.User, error)
	GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (us *userService) GetBySubject(ctx context.Context, subjectID string) (*types.User, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []string{subjectID})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.SubjectID == "" {
		return nil, ErrUnauthenticated
	}
	return us.GetBySubject(ctx, rd.SubjectID)
}
