package database

import (
	"database/sql"

	"github.com/uptrace/bun/driver/pgdriver"
)

// NewConnector builds a pgdriver connector for dsn whose sessions run in UTC, keeping any
// other parameters the DSN sets.
func NewConnector(dsn string) *pgdriver.Connector {
	return pgdriver.NewConnector(pgdriver.WithDSN(dsn), utcSession)
}

// OpenPostgres opens a pool over NewConnector.
func OpenPostgres(dsn string) *sql.DB {
	return sql.OpenDB(NewConnector(dsn))
}

func utcSession(conf *pgdriver.Config) {
	params := make(map[string]interface{}, len(conf.ConnParams)+1)
	for k, v := range conf.ConnParams {
		params[k] = v
	}
	params["timezone"] = "UTC"
	conf.ConnParams = params
}
