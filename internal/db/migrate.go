package db

import (
	"errors"

	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"github.com/ikkim/annualreport-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Client{},
		&model.AnnualReport{},
		&model.ScheduleEntry{},
		&model.StatusHistoryEntry{},
		&model.StageChange{},
	}
}

// Migrate runs database migrations and seeds the bootstrap admin.
func Migrate(admin config.AdminConfig) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedAdmin(DB, admin); err != nil {
		logger.Error("Failed to seed admin during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin creates the first admin account unless one with the same email exists.
func SeedAdmin(db *gorm.DB, admin config.AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		logger.Info("No bootstrap admin configured, skipping...")
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		logger.Info("Bootstrap admin already exists, skipping...", map[string]interface{}{
			"user_id": existing.ID,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	user := &model.User{
		Email:        admin.Email,
		PasswordHash: hash,
		Name:         admin.Name,
		Role:         model.RoleAdmin,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}

	logger.Info("Bootstrap admin created", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}
