package errors

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL and Postgres duplicate-key error identifiers.
const (
	mysqlDupEntryNumber    = 1062
	postgresUniqueSQLState = "23505"
)

// ParseDBError converts a database error into an appropriate APIError.
// Unique-constraint violations map to ErrDuplicateResource, missing rows to
// ErrResourceNotFound, everything else to ErrDatabase with the driver message.
func ParseDBError(err error) *APIError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResourceNotFound
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntryNumber {
		return ErrDuplicateResource
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueSQLState {
		return ErrDuplicateResource
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateResource
	}

	return NewAPIError(ErrDatabase, err.Error())
}
