package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"pgconn unique violation", &pgconn.PgError{Code: CodeUniqueViolation}, true},
		{"wrapped pgconn error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation}), true},
		{"string fallback", errors.New("ERROR: duplicate key value (SQLSTATE 23505)"), true},
		{"other pg error", &pgconn.PgError{Code: CodeForeignKeyViolation}, false},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: CodeForeignKeyViolation}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: CodeUniqueViolation}))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestIsNotNullViolation(t *testing.T) {
	assert.True(t, IsNotNullViolation(errors.New("SQLSTATE 23502")))
	assert.False(t, IsNotNullViolation(errors.New("SQLSTATE 23514")))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: CodeCheckViolation}))
	assert.False(t, IsCheckViolation(nil))
}
