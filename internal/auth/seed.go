package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/homebot/homebot-core/internal/infrastructure/logging"
)

// SeedAdminEmail is the login of the first-boot admin account.
const SeedAdminEmail = "admin@homebot.local"

const seedPasswordBytes = 12

// SeedAdmin creates an admin account when the user table is empty and
// returns its generated password. It returns "" when users already exist.
func SeedAdmin(ctx context.Context, p *LocalProvider, logger *logging.Logger) (string, error) {
	count, err := p.CountUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	raw := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(raw)

	if _, err := p.CreateUser(ctx, CreateUserInput{
		Email:       SeedAdminEmail,
		Password:    password,
		DisplayName: "System Administrator",
		Role:        RoleAdmin,
	}); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", SeedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)
	return password, nil
}
