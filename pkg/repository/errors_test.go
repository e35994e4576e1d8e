package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassInternal},
		{"missing order fields", ErrMissingOrderFields, ErrorClassValidation},
		{"wrapped invalid item", fmt.Errorf("item 2: %w", ErrInvalidItem), ErrorClassValidation},
		{"missing amount", ErrMissingAmount, ErrorClassValidation},
		{"missing review fields", ErrMissingReviewFields, ErrorClassValidation},
		{"order not paid", ErrOrderNotPaid, ErrorClassValidation},
		{"invalid limit", ErrInvalidLimit, ErrorClassValidation},
		{"not found", ErrOrderNotFound, ErrorClassNotFound},
		{"already paid", ErrOrderAlreadyPaid, ErrorClassConflict},
		{"unavailable", fmt.Errorf("insert review: %w: boom", ErrStoreUnavailable), ErrorClassUnavailable},
		{"lock timeout", fmt.Errorf("lock order: %w", ErrLockTimeout), ErrorClassInternal},
		{"other", errors.New("syntax error"), ErrorClassInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "validation", ErrorClassValidation.String())
	assert.Equal(t, "not_found", ErrorClassNotFound.String())
	assert.Equal(t, "conflict", ErrorClassConflict.String())
	assert.Equal(t, "unavailable", ErrorClassUnavailable.String())
	assert.Equal(t, "internal", ErrorClassInternal.String())
}

func TestTranslateMySQLError(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	err := translateMySQLError("lock order", deadlock)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorContains(t, err, "lock order")

	wait := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	assert.ErrorIs(t, translateMySQLError("lock order", wait), ErrLockTimeout)

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	err = translateMySQLError("insert payment", dup)
	assert.NotErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, dup)
}

func TestTranslateMongoError(t *testing.T) {
	sse := topology.ServerSelectionError{Wrapped: topology.ErrServerSelectionTimeout}
	err := translateMongoError("insert review", sse)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, ErrorClassUnavailable, ClassifyError(err))

	err = translateMongoError("aggregate reviews", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	plain := errors.New("(BadValue) bad pipeline")
	err = translateMongoError("aggregate reviews", plain)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, plain)
}
