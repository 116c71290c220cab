package app

import (
	"gorm.io/gorm"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/repos"
)

type Repos struct {
	User repos.UserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User: repos.NewUserRepo(db, log),
	}
}
