package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

type ErrorClass int

const (
	ErrorClassInternal ErrorClass = iota
	ErrorClassValidation
	ErrorClassNotFound
	ErrorClassConflict
	ErrorClassUnavailable
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassValidation:
		return "validation"
	case ErrorClassNotFound:
		return "not_found"
	case ErrorClassConflict:
		return "conflict"
	case ErrorClassUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

var (
	ErrMissingOrderFields  = errors.New("userId & items[] required")
	ErrInvalidItem         = errors.New("each item requires productId, quantity, price")
	ErrMissingAmount       = errors.New("amount required")
	ErrMissingReviewFields = errors.New("productId & rating required")
	ErrOrderNotPaid        = errors.New("review allowed only for PAID orders")
	ErrInvalidLimit        = errors.New("limit must be positive")

	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")
	ErrLockTimeout      = errors.New("lock timeout")
	ErrStoreUnavailable = errors.New("document store unavailable")
)

var validationErrors = []error{
	ErrMissingOrderFields,
	ErrInvalidItem,
	ErrMissingAmount,
	ErrMissingReviewFields,
	ErrOrderNotPaid,
	ErrInvalidLimit,
}

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassInternal
	}

	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return ErrorClassValidation
		}
	}

	switch {
	case errors.Is(err, ErrOrderNotFound):
		return ErrorClassNotFound
	case errors.Is(err, ErrOrderAlreadyPaid):
		return ErrorClassConflict
	case errors.Is(err, ErrStoreUnavailable):
		return ErrorClassUnavailable
	}

	return ErrorClassInternal
}

// MySQL error numbers treated as lock contention.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func translateMySQLError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%s: %w: %v", op, ErrLockTimeout, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isMongoUnavailable reports whether err means no suitable member could be
// reached in time.
func isMongoUnavailable(err error) bool {
	var sse topology.ServerSelectionError
	if errors.As(err, &sse) {
		return true
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

func translateMongoError(op string, err error) error {
	if isMongoUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
