// Package bootstrap seeds state the server needs before it accepts traffic.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agriconnect/internal/config"
	"agriconnect/internal/model"
	"agriconnect/internal/repository"
	"agriconnect/internal/service"

	"github.com/rs/zerolog"
)

const defaultAdminName = "Administrator"

// EnsureAdmin creates the configured admin account if its phone is not registered yet.
// It goes through the regular signup path so the same validation and hashing apply.
func EnsureAdmin(ctx context.Context, cfg config.AdminBootstrapConfig, users repository.UserRepository, auth service.AuthService, log zerolog.Logger) error {
	if !cfg.Enabled() {
		return nil
	}

	existing, err := users.FindByPhone(ctx, cfg.Phone)
	if err != nil {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			log.Warn().Str("user_id", existing.ID).Str("role", string(existing.Role)).
				Msg("admin bootstrap phone belongs to a non-admin account, skipping")
		}
		return nil
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = defaultAdminName
	}

	user, _, err := auth.Signup(ctx, model.SignupRequest{
		Name:     name,
		Phone:    cfg.Phone,
		Password: cfg.Password,
		Role:     string(model.RoleAdmin),
	})
	if errors.Is(err, service.ErrUserAlreadyExists) {
		// Another instance bootstrapped concurrently.
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap create admin: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("bootstrap admin account created")
	return nil
}
