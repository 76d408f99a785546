package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-workshop/backend/pkg/utils"
)

// AdminCreator creates the bootstrap admin account.
type AdminCreator interface {
	CreateIfMissing(ctx context.Context, email, passwordHash, fullName string) (bool, error)
}

// EnsureAdmin creates the configured admin on first start. Blank credentials
// skip bootstrapping; an existing account is never overwritten.
func EnsureAdmin(ctx context.Context, repo AdminCreator, email, password, fullName string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		logger.Warn("admin bootstrap skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := repo.CreateIfMissing(ctx, email, hash, fullName)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if created {
		logger.Info("admin account created", zap.String("email", utils.RedactEmail(email)))
	}
	return nil
}
