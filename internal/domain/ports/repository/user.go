package repository

import (
	"context"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// FindByEmail fails with domain.ErrNotFound if no account exists for the
	// address; reconciliation then promotes the guest to an account.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)

	// AddCourse and AddPayment are set-union operations: adding an element
	// already present is a no-op, never an error and never a duplicate.
	AddCourse(ctx context.Context, tx Tx, userID, classGroupID string) error
	AddPayment(ctx context.Context, tx Tx, userID, paymentID string) error

	UpdateStatuses(ctx context.Context, tx Tx, userID string, course model.CourseStatus, payment model.UserPaymentStatus) error
}
