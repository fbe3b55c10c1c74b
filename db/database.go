package db

import (
	"log"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (or creates) the SQLite database at dbPath and migrates the
// schema. The caller owns the returned handle.
func Open(dbPath string) (*gorm.DB, error) {
	// Configure GORM logger
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Use standard log writer (os.Stdout)
		gormlogger.Config{
			SlowThreshold:             time.Second,     // Slow SQL threshold
			LogLevel:                  gormlogger.Warn, // Log level (Warn, Error, Info)
			IgnoreRecordNotFoundError: true,            // Ignore ErrRecordNotFound error
			ParameterizedQueries:      false,           // Log SQL queries with params
			Colorful:                  true,            // Enable color
		},
	)

	gdb, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger, // Use the configured logger
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the PendingMutation and Snapshot schema
	if err := gdb.AutoMigrate(&PendingMutation{}, &Snapshot{}); err != nil {
		return nil, err
	}
	return gdb, nil
}
