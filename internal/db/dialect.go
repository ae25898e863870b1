package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/webserv/sessionauth/config"
)

// Dialect identifies the SQL flavour spoken by the store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor returns the dialect of the configured store driver.
func DialectFor(cfg config.Config) (Dialect, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverSQLite, "":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Queries must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
