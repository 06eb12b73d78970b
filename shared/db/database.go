package db

import (
	"database/sql"
)

// Database is a connection the post stores run on. Connect applies any pending
// schema migrations before returning.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
