package store

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverFactory is a function that creates a gorm.Dialector
type DriverFactory func(dsn string) gorm.Dialector

// driverFactories maps DATABASE_DRIVER values to their factory functions
var driverFactories = map[string]DriverFactory{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

// GetDialector returns a GORM dialector for the given driver name and DSN
func GetDialector(driver, dsn string) (gorm.Dialector, error) {
	factory, exists := driverFactories[driver]
	if !exists {
		return nil, fmt.Errorf(
			"unsupported database driver: %s (must be: %s)",
			driver,
			strings.Join(SupportedDrivers(), ", "),
		)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required for driver %s", driver)
	}
	return factory(dsn), nil
}

// SupportedDrivers lists the registered driver names in sorted order
func SupportedDrivers() []string {
	names := make([]string, 0, len(driverFactories))
	for name := range driverFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
