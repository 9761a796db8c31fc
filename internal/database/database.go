package database

import (
	"time"

	"feedesk/config"
	"feedesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by every connection so duplicate-key errors surface
// as gorm.ErrDuplicatedKey regardless of driver. Gorm's own logging goes
// through log; lookups that find nothing are not errors.
func GormConfig(log *zap.Logger) *gorm.Config {
	w, err := zap.NewStdLogAt(log.Named("gorm"), zap.WarnLevel)
	if err != nil {
		w = zap.NewStdLog(log.Named("gorm"))
	}
	return &gorm.Config{
		Logger: logger.New(w, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}
}

func NewDB(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), GormConfig(log))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Counter{},
		&models.ReferralCode{},
		&models.StudentReferral{},
		&models.Payment{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}
