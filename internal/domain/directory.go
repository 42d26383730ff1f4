package domain

import (
	"context"
	"strings"
	"time"
)

// Employee is the cafeteria identity of a User. It is what votes.
type Employee struct {
	ID         int64
	UserID     int64
	FirstName  string
	LastName   string
	DateJoined time.Time
}

func (e *Employee) DisplayName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Restaurant owns menus and the canonical menu items they are built from.
// Names are not unique.
type Restaurant struct {
	ID         int64
	UserID     *int64
	Name       string
	DateJoined time.Time
}

func (r *Restaurant) DisplayName() string { return r.Name }

type EmployeeRepository interface {
	Create(ctx context.Context, employee *Employee) error
	GetByID(ctx context.Context, id int64) (*Employee, error)
	GetByUserID(ctx context.Context, userID int64) (*Employee, error)
}

type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *Restaurant) error
	GetByID(ctx context.Context, id int64) (*Restaurant, error)
}
