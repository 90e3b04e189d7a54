// Package db selects the storage driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/tripsense/internal/profile"
	"github.com/hrygo/tripsense/store"
	"github.com/hrygo/tripsense/store/db/file"
	"github.com/hrygo/tripsense/store/db/sqlite"
)

// NewDBDriver creates a new storage driver based on the profile.
func NewDBDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "sqlite":
		return sqlite.NewDB(p.DSN)
	case "file":
		return file.NewDB(p.Data)
	default:
		return nil, errors.Errorf("unknown db driver %q", p.Driver)
	}
}
