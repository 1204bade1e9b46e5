// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// Provider names a supported SQL backend.
type Provider string

const (
	SQLite   Provider = "sqlite"
	Postgres Provider = "postgres"
	MySQL    Provider = "mysql"
	MSSQL    Provider = "mssql"
)

// driverName maps a provider to its database/sql driver.
func driverName(p Provider) (string, error) {
	switch p {
	case SQLite:
		return "sqlite3", nil
	case Postgres:
		return "pgx", nil
	case MySQL:
		return "mysql", nil
	case MSSQL:
		return "sqlserver", nil
	default:
		return "", errs.New(errs.ConfigError, "unknown storage provider %q", p)
	}
}

// BuildDSN converts the connection string users enter (usually a URL) into
// the form the provider's driver expects.
func BuildDSN(p Provider, dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", errs.New(errs.ConfigError, "empty connection string")
	}

	switch p {
	case SQLite:
		// A bare file path; tolerate a sqlite:// prefix.
		return strings.TrimPrefix(dsn, "sqlite://"), nil

	case Postgres:
		if !strings.Contains(dsn, "://") {
			dsn = "postgresql://" + dsn
		}
		return dsn, nil

	case MySQL:
		// The driver wants user:pass@tcp(host:port)/db, not a URL.
		return mysqlDSN(dsn)

	case MSSQL:
		if strings.HasPrefix(dsn, "mssql://") {
			dsn = "sqlserver://" + strings.TrimPrefix(dsn, "mssql://")
		}
		if !strings.Contains(dsn, "://") {
			dsn = "sqlserver://" + dsn
		}
		return dsn, nil

	default:
		return "", errs.New(errs.ConfigError, "unknown storage provider %q", p)
	}
}

func mysqlDSN(dsn string) (string, error) {
	if !strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "(") {
			// Already in driver form, e.g. user:pass@tcp(host:port)/db.
			return dsn, nil
		}
		// A bare user:pass@host:port/db tail; treat it as a URL.
		dsn = "mysql://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", errs.Wrap(errs.ConfigError, err, "parse mysql url")
	}

	var creds string
	if u.User != nil {
		creds = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			creds = fmt.Sprintf("%s:%s", creds, pass)
		}
		creds += "@"
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	db := strings.TrimPrefix(u.Path, "/")

	out := fmt.Sprintf("%stcp(%s:%s)/%s?parseTime=true", creds, host, port, db)
	if q := u.RawQuery; q != "" {
		out += "&" + q
	}
	return out, nil
}
