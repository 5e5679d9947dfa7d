package dberrors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.True(t, IsDuplicateConstraintError(unique, "users_email_key"))
	assert.True(t, IsDuplicateConstraintError(unique, ""))
	assert.False(t, IsDuplicateConstraintError(unique, "students_roll_key"))
	assert.False(t, IsForeignKeyError(unique))

	fk := &pgconn.PgError{Code: "23503"}
	assert.True(t, IsForeignKeyError(fk))
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))

	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
}
