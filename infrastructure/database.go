package infrastructure

import (
	"fmt"
	"strings"

	"ats-evaluator/config"
	"ats-evaluator/domain"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects with the configured driver and migrates the schema.
func OpenDatabase(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection serialises transactions.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Seed {
		if err := seedJobDescriptions(db); err != nil {
			return nil, err
		}
	}

	if log != nil {
		log.Info("connected to database", zap.String("driver", cfg.Driver))
	}
	return db, nil
}

// Migrate creates or updates the job_descriptions and results tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.JobDescription{}, &domain.EvaluationResult{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func seedJobDescriptions(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.JobDescription{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count job descriptions: %w", err)
	}

	if count > 0 {
		return nil
	}

	jd := domain.JobDescription{
		Title: "Backend Engineer (Go)",
		Description: "Product engineer focused on Go, MySQL, RabbitMQ and AI/LLM integration. " +
			"Experience with RESTful APIs, database design, cloud platforms and containerised " +
			"deployments (Docker, Kubernetes) is required.",
	}
	if err := db.Create(&jd).Error; err != nil {
		return fmt.Errorf("failed to seed job descriptions: %w", err)
	}
	return nil
}
