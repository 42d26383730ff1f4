package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/validation"
)

// EmployeeService registers employees together with their login.
type EmployeeService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewEmployeeService(store domain.Store, logger *slog.Logger) *EmployeeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeService{store: store, logger: logger}
}

// CreateEmployeeInput is the body of POST /employee/.
type CreateEmployeeInput struct {
	Username  *string `json:"username" validate:"required,min=1,max=150"`
	Password  *string `json:"password" validate:"required,min=1"`
	Email     *string `json:"email" validate:"required,email"`
	FirstName *string `json:"first_name" validate:"required,min=1"`
	LastName  *string `json:"last_name" validate:"required,min=1"`
}

// CreateEmployee creates the login user and the employee in one transaction.
func (s *EmployeeService) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (emp *domain.Employee, err error) {
	ctx, span := startSpan(ctx, "EmployeeService.CreateEmployee")
	defer func() { endSpan(span, err) }()

	if fields := validation.Struct(in); fields != nil {
		return nil, &domain.ValidationError{Fields: fields}
	}
	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx domain.Repositories) error {
		user, err := newLogin(ctx, tx, *in.Username, *in.Email, hash)
		if err != nil {
			return err
		}
		emp = &domain.Employee{UserID: user.ID, FirstName: *in.FirstName, LastName: *in.LastName}
		if err := tx.Employees().Create(ctx, emp); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee created",
		slog.Int64("employee_id", emp.ID),
		slog.String("username", *in.Username),
	)
	return emp, nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	emp, err := s.store.Employees().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Employee")
	}
	if err != nil {
		return nil, fmt.Errorf("get employee %d: %w", id, err)
	}
	return emp, nil
}

// employeeForUser returns the employee identity of a login, or ErrEmployeeNotFound.
func employeeForUser(ctx context.Context, employees domain.EmployeeRepository, userID int64) (*domain.Employee, error) {
	emp, err := employees.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee of user %d: %w", userID, err)
	}
	return emp, nil
}
