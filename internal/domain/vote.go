package domain

import (
	"context"
	"time"
)

const (
	ActionLiked    = "liked"
	ActionDisliked = "disliked"
)

// Vote is one employee's like or dislike of one menu.
type Vote struct {
	ID         int64
	MenuID     int64
	EmployeeID int64
	Like       bool
	VotedAt    time.Time
}

// Action is the past-tense label for the vote direction.
func (v *Vote) Action() string {
	return ActionFor(v.Like)
}

func ActionFor(like bool) string {
	if like {
		return ActionLiked
	}
	return ActionDisliked
}

// Tally is the vote count for one menu.
type Tally struct {
	MenuID   int64 `json:"menu_id"`
	Likes    int   `json:"likes"`
	Dislikes int   `json:"dislikes"`
	Result   int   `json:"result"`
}

type VoteRepository interface {
	FindByMenuAndEmployee(ctx context.Context, menuID, employeeID int64) (*Vote, error)
	// Create inserts the vote. ErrDuplicate means the pair already voted.
	Create(ctx context.Context, vote *Vote) error
	// TallyForDate counts votes of every menu launched on date, ordered by menu id.
	TallyForDate(ctx context.Context, date Date) ([]Tally, error)
}
