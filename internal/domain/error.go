package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Payment and reconciliation errors
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrDuplicateTransaction = errors.New("transaction id already exists")
	ErrProviderInit         = errors.New("provider payment initialization failed")
	ErrProviderVerify       = errors.New("provider payment verification failed")
	ErrInvalidSignature     = errors.New("webhook signature mismatch")
	ErrAlreadyEnrolled      = errors.New("user already enrolled in class group")
	ErrLockNotAcquired      = errors.New("could not acquire reconciliation lock")
)
