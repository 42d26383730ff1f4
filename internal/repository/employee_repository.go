package repository

import (
	"context"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type employeeRepository struct {
	conn
}

func (r *employeeRepository) Create(ctx context.Context, e *domain.Employee) error {
	e.DateJoined = r.timestamp()

	err := r.queryRow(ctx, `
		INSERT INTO employees (user_id, first_name, last_name, date_joined)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		e.UserID, e.FirstName, e.LastName, e.DateJoined,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create employee: %w", classify(err))
	}
	return nil
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *employeeRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Employee, error) {
	return r.getOne(ctx, "user_id = $1", userID)
}

func (r *employeeRepository) getOne(ctx context.Context, where string, arg any) (*domain.Employee, error) {
	e := &domain.Employee{}
	err := r.queryRow(ctx, `
		SELECT id, user_id, first_name, last_name, date_joined
		FROM employees
		WHERE `+where, arg,
	).Scan(&e.ID, &e.UserID, &e.FirstName, &e.LastName, scanTime(&e.DateJoined))
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", classify(err))
	}
	return e, nil
}
