package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coachgate/internal/model"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Models lists the tables owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.CoachAssignment{},
		&model.Workout{},
		&model.WorkoutLog{},
	}
}

// Migrate creates or updates the schema. With reset set, existing tables
// are dropped first.
func Migrate(db *gorm.DB, reset bool, log zerolog.Logger) error {
	models := Models()
	if reset {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
		for i := len(models) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(models[i]); err != nil {
				log.Warn().Err(err).Msg("drop table (may not exist)")
			}
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
