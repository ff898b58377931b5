package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/repository"
)

var _ repository.StudentRepository = (*studentRepo)(nil)

type studentRepo struct {
	pool *pgxpool.Pool
}

func NewStudentRepo(pool *pgxpool.Pool) *studentRepo {
	return &studentRepo{pool: pool}
}

func (r *studentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Student, error) {
	const q = `SELECT id, name, course, email, phone FROM students WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var s model.Student
	if err := row.Scan(&s.ID, &s.Name, &s.Course, &s.Email, &s.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *studentRepo) Save(ctx context.Context, tx repository.Tx, s *model.Student) error {
	const q = `
INSERT INTO students (id, name, course, email, phone)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  course = EXCLUDED.course,
  email = EXCLUDED.email,
  phone = EXCLUDED.phone;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Name, s.Course, s.Email, s.Phone)
	return err
}
