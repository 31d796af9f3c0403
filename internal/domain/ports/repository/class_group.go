package repository

import (
	"context"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

type ClassGroupRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.ClassGroup, error)
	FindTemplate(ctx context.Context, tx Tx, templateID string) (*model.CourseTemplate, error)

	// Enroll adds the user to the group's enrolled set; already-enrolled is a
	// no-op (set union).
	Enroll(ctx context.Context, tx Tx, classGroupID, userID string) error
}
