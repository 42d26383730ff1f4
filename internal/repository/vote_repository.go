package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type voteRepository struct {
	conn
}

func (r *voteRepository) FindByMenuAndEmployee(ctx context.Context, menuID, employeeID int64) (*domain.Vote, error) {
	v := &domain.Vote{}
	err := r.queryRow(ctx, `
		SELECT id, menu_id, employee_id, is_like, voted_at
		FROM votes
		WHERE menu_id = $1 AND employee_id = $2`,
		menuID, employeeID,
	).Scan(&v.ID, &v.MenuID, &v.EmployeeID, &v.Like, scanTime(&v.VotedAt))
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", classify(err))
	}
	return v, nil
}

// Create inserts the vote unless the (menu, employee) pair already has one. The
// unique constraint decides; losing a race surfaces as ErrDuplicate.
func (r *voteRepository) Create(ctx context.Context, v *domain.Vote) error {
	v.VotedAt = r.timestamp()

	err := r.queryRow(ctx, `
		INSERT INTO votes (menu_id, employee_id, is_like, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (menu_id, employee_id) DO NOTHING
		RETURNING id`,
		v.MenuID, v.EmployeeID, v.Like, v.VotedAt,
	).Scan(&v.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("create vote: %w", domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create vote: %w", classify(err))
	}
	return nil
}

func (r *voteRepository) TallyForDate(ctx context.Context, date domain.Date) ([]domain.Tally, error) {
	rows, err := r.query(ctx, `
		SELECT m.id,
		       COALESCE(SUM(CASE WHEN v.is_like THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN NOT v.is_like THEN 1 ELSE 0 END), 0)
		FROM menus m
		LEFT JOIN votes v ON v.menu_id = m.id
		WHERE m.launch_date = $1
		GROUP BY m.id
		ORDER BY m.id`, date)
	if err != nil {
		return nil, fmt.Errorf("tally votes for %s: %w", date, err)
	}
	defer rows.Close()

	tallies := []domain.Tally{}
	for rows.Next() {
		var t domain.Tally
		if err := rows.Scan(&t.MenuID, &t.Likes, &t.Dislikes); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		t.Result = t.Likes - t.Dislikes
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
