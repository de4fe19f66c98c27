package cmd

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
)

var adminBootstrapCmd = &cobra.Command{
	Use:   "admin-bootstrap",
	Short: "Create the first administrative user if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdminBootstrap(cmd.Context())
	},
}

// runAdminBootstrap seeds a single admin user from ADMIN_BOOTSTRAP_*
// env vars, the way the teacher's serve command bootstraps its first
// operator account. Tomato has no login surface of its own (spec §1
// keeps authentication out of scope for this gateway), so this stays a
// one-time seed rather than a credential-verification subsystem; a
// salted SHA-256 digest is enough to avoid storing the plaintext
// password without pulling in a password-hashing dependency this repo
// otherwise has no use for.
func runAdminBootstrap(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.AdminBootstrap.Username == "" || cfg.AdminBootstrap.Password == "" {
		return fmt.Errorf("ADMIN_BOOTSTRAP_USERNAME and ADMIN_BOOTSTRAP_PASSWORD are required")
	}

	logger := config.NewLogger(cfg.Logging)

	if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	pool, err := connectPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	users := repo.Users()
	exists, err := users.AnyExist(ctx)
	if err != nil {
		return fmt.Errorf("check existing users: %w", err)
	}
	if exists {
		logger.Info().Msg("an admin user already exists; skipping bootstrap")
		return nil
	}

	hash, err := hashPassword(cfg.AdminBootstrap.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := users.Create(ctx, cfg.AdminBootstrap.Username, cfg.AdminBootstrap.Email, hash); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.Info().Str("username", cfg.AdminBootstrap.Username).Msg("admin user created")
	return nil
}

const passwordSaltBytes = 16

// hashPassword salts password with random bytes and returns
// "salt_hex:digest_hex", good enough for a one-time seed record that
// nothing in this repo ever compares against at request time.
func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(digest[:]), nil
}
