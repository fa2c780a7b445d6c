package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{
			name:     "no rows is not found",
			err:      pgx.ErrNoRows,
			wantCode: ErrCodeNotFound,
		},
		{
			name:     "wrapped no rows is not found",
			err:      fmt.Errorf("query user: %w", pgx.ErrNoRows),
			wantCode: ErrCodeNotFound,
		},
		{
			name: "unique violation with column metadata",
			err: &pgconn.PgError{
				Code:       pgerrcode.UniqueViolation,
				ColumnName: "username",
			},
			wantCode:  ErrCodeConflict,
			wantField: "username",
		},
		{
			name: "unique violation field parsed from detail",
			err: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: `Key (email)=(mary@example.org) already exists.`,
			},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name:     "foreign key violation is validation",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			wantCode: ErrCodeValidation,
		},
		{
			name: "not null violation names the column",
			err: &pgconn.PgError{
				Code:       pgerrcode.NotNullViolation,
				ColumnName: "password_hash",
			},
			wantCode:  ErrCodeValidation,
			wantField: "password_hash",
		},
		{
			name:     "deadline exceeded is internal",
			err:      context.DeadlineExceeded,
			wantCode: ErrCodeInternal,
		},
		{
			name:     "unknown pg error is internal",
			err:      &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			wantCode: ErrCodeInternal,
		},
		{
			name:     "unrecognized error is wrapped internal",
			err:      errors.New("connection refused"),
			wantCode: ErrCodeInternal,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapDBError(tc.err)
			assert.Equal(t, tc.wantCode, GetCode(mapped))
			assert.Equal(t, tc.wantField, GetField(mapped))
			assert.ErrorIs(t, mapped, tc.err, "original error must stay reachable via Unwrap")
		})
	}

	assert.NoError(t, MapDBError(nil))
}
