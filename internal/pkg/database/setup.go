package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/billing"
	"github.com/MarcChevalier/Tastevin/internal/pkg/env"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var db *gorm.DB

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,   // data source name
			DefaultStringSize:         256,   // default size for string fields
			DisableDatetimePrecision:  true,  // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
		}), &gorm.Config{})
		if err == nil {
			if err := migrate(db); err != nil {
				panic(err)
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.ProviderAccount{},
		&models.SubscriptionPlan{},
		&models.UserSubscription{},
		&models.Voucher{},
		&models.WebhookEvent{},
		&models.Team{},
		&models.TeamMember{},
		&models.TastingEvent{},
		&models.EventAttendee{},
		&models.TastingNote{},
		&models.Contest{},
		&models.ContestEntry{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	if err := plancatalog.Seed(billing.NewRepository(db)); err != nil {
		return fmt.Errorf("plan catalog seeding failed: %w", err)
	}

	return nil
}

// GetDB returns the shared database handle, or nil before SetupDatabase
func GetDB() *gorm.DB {
	return db
}
