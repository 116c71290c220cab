package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wavenote/wavenote-backend/internal/clients/synccache"
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/services"
	"github.com/wavenote/wavenote-backend/internal/utils"
)

// syncprobe drives one client-side reconciliation pass against a running
// backend: decode the session token, dirty-check the cached payload, and hit
// /api/auth/sync if they differ. Useful when debugging why a session's user
// row looks stale.
func main() {
	var baseURL string
	var token string
	var reset bool
	flag.StringVar(&baseURL, "base-url", "http://localhost:8080", "backend base URL")
	flag.StringVar(&token, "token", "", "session token to probe with (required)")
	flag.BoolVar(&reset, "reset", false, "clear the once-per-session flag before probing")
	flag.Parse()

	if token == "" {
		fmt.Println("-token is required")
		os.Exit(1)
	}

	log, err := logger.New(utils.GetEnv("LOG_MODE", "development", nil))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	session := services.NewSessionService(log,
		utils.GetEnv("SESSION_JWKS_URL", "", log),
		utils.GetEnv("SESSION_JWT_SECRET", "", log),
		utils.GetEnv("SESSION_ISSUER", "", log),
		nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	principal, err := session.PrincipalFromToken(ctx, token)
	if err != nil {
		fmt.Printf("decode session token: %v\n", err)
		os.Exit(1)
	}

	var kv synccache.KV = synccache.NewMemoryKV()
	if addr := utils.GetEnv("REDIS_ADDR", "", log); addr != "" {
		redisKV, err := synccache.NewRedisKV(log, addr, os.Getenv("REDIS_PASSWORD"), 24*time.Hour)
		if err != nil {
			fmt.Printf("connect redis: %v\n", err)
			os.Exit(1)
		}
		kv = redisKV
	}

	client := synccache.NewClient(log, nil, baseURL, kv)
	if reset {
		client.ResetSession(principal.SubjectID)
	}
	client.EnsureSynced(ctx, synccache.Payload{
		SubjectID: principal.SubjectID,
		Email:     principal.Email,
		Name:      principal.Name,
	}, token)

	fmt.Printf("probed subject=%s email=%s against %s\n", principal.SubjectID, principal.Email, baseURL)
}
