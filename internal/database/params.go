package database

import (
	"fmt"
	"strings"
)

// Supported driver names.
const (
	DriverPgx      = "pgx"      // PostgreSQL via jackc/pgx
	DriverPostgres = "postgres" // PostgreSQL via lib/pq
	DriverSQLite   = "sqlite"   // SQLite via modernc.org/sqlite
)

// DefaultDriver is used when ConnectionParameters.Driver is empty.
const DefaultDriver = DriverPgx

// ConnectionParameters are the credentials collected from the user.
// For the sqlite driver DBName is the database file path and the
// network fields are ignored.
type ConnectionParameters struct {
	Driver   string `yaml:"driver"`
	DBName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Port     string `yaml:"port"`
	Password string `yaml:"-"`
	SSLMode  string `yaml:"sslmode"`
}

// DriverName returns the database/sql driver name, applying the default.
func (p ConnectionParameters) DriverName() string {
	d := strings.ToLower(strings.TrimSpace(p.Driver))
	switch d {
	case "":
		return DefaultDriver
	case "postgresql", "pq":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	}
	return d
}

// IsSQLite reports whether the parameters target an SQLite file.
func (p ConnectionParameters) IsSQLite() bool {
	return p.DriverName() == DriverSQLite
}

// DSN builds the driver-specific data source name.
func (p ConnectionParameters) DSN() (string, error) {
	switch p.DriverName() {
	case DriverSQLite:
		if p.DBName == "" {
			return "", fmt.Errorf("sqlite requires a database file path")
		}
		return fmt.Sprintf("file:%s?mode=rw&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", p.DBName), nil

	case DriverPgx, DriverPostgres:
		sslmode := p.SSLMode
		if sslmode == "" && p.DriverName() == DriverPostgres {
			// lib/pq defaults to require, which fails against most local servers
			sslmode = "disable"
		}
		parts := make([]string, 0, 6)
		for _, kv := range [][2]string{
			{"dbname", p.DBName},
			{"host", p.Host},
			{"user", p.User},
			{"port", p.Port},
			{"password", p.Password},
			{"sslmode", sslmode},
		} {
			if kv[1] == "" {
				continue
			}
			parts = append(parts, kv[0]+"="+quoteDSNValue(kv[1]))
		}
		return strings.Join(parts, " "), nil

	default:
		return "", fmt.Errorf("unsupported database driver: %s", p.Driver)
	}
}

// String describes the target without the password, for logs and titles.
func (p ConnectionParameters) String() string {
	if p.IsSQLite() {
		return "sqlite:" + p.DBName
	}
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	if p.Port != "" {
		host += ":" + p.Port
	}
	if p.User != "" {
		return fmt.Sprintf("%s@%s/%s", p.User, host, p.DBName)
	}
	return fmt.Sprintf("%s/%s", host, p.DBName)
}

// quoteDSNValue quotes a keyword/value connection string value when needed.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
