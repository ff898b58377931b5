package repository

import (
	"context"

	"enrollment-docgen/internal/domain/model"
)

type StudentRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Student, error)
	Save(ctx context.Context, tx Tx, s *model.Student) error
}
