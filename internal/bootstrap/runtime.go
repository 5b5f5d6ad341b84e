// Package bootstrap connects the runtime dependencies shared by the server and seed commands.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis and ensures the development admin exists.
// The returned Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if err := ensureDevAdmin(cfg, db, bcrypt.DefaultCost); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return db, r, nil
}

func ensureDevAdmin(cfg *config.Config, db *gorm.DB, cost int) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "admin"
	}
	password := cfg.DevAdminPassword
	if password == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("username = ?", username).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Username: username,
				Password: string(hashedPassword),
				IsAdmin:  true,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			// An existing account keeps its password; only the flag is enforced.
			return tx.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_admin", true).Error
		}
	}); err != nil {
		return err
	}

	log.Printf("development admin bootstrap ensured for %s", username)
	return nil
}
