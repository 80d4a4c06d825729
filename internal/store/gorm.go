// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package store

import (
	"github.com/samber/oops"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver names accepted by OpenGorm and the database.driver setting.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// OpenGorm opens a MySQL or SQLite database for the gorm-backed repositories.
// PostgreSQL goes through Connect instead.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, oops.Code("DB_DRIVER_UNSUPPORTED").
			With("driver", driver).
			Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("driver", driver).
			With("operation", "open gorm database").
			Wrap(err)
	}
	return db, nil
}
