package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/observability/metrics"
	"github.com/elebur/VoteAPI/internal/validation"
)

// VoteService registers votes and reports tallies.
type VoteService struct {
	store    domain.Store
	calendar Calendar
	logger   *slog.Logger
}

func NewVoteService(store domain.Store, calendar Calendar, logger *slog.Logger) *VoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{store: store, calendar: calendar, logger: logger}
}

// VoteInput is the body of POST /menu/{id}/vote/.
type VoteInput struct {
	Like *validation.Bool `json:"like" validate:"required"`
}

type VoteResult struct {
	VoteID int64  `json:"vote_id"`
	Action string `json:"action"`
}

// Ballot is a voter and a menu that both exist, ready to receive a vote.
type Ballot struct {
	Employee *domain.Employee
	Menu     *domain.Menu
}

// OpenBallot resolves the caller's employee identity and then the menu. Either
// missing is reported before anything about the vote itself.
func (s *VoteService) OpenBallot(ctx context.Context, userID, menuID int64) (b *Ballot, err error) {
	ctx, span := startSpan(ctx, "VoteService.OpenBallot",
		attribute.Int64("user.id", userID),
		attribute.Int64("menu.id", menuID),
	)
	defer func() { endSpan(span, err) }()

	emp, err := employeeForUser(ctx, s.store.Employees(), userID)
	if err != nil {
		return nil, err
	}

	menu, err := s.store.Menus().GetByID(ctx, menuID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Menu")
	}
	if err != nil {
		return nil, fmt.Errorf("get menu %d: %w", menuID, err)
	}
	return &Ballot{Employee: emp, Menu: menu}, nil
}

// RegisterVote records the like or dislike of the caller's employee for a menu.
// Votes are never changed: a second attempt fails with a ConflictError naming
// the direction of the vote already on record.
func (s *VoteService) RegisterVote(ctx context.Context, userID, menuID int64, in VoteInput) (*VoteResult, error) {
	b, err := s.OpenBallot(ctx, userID, menuID)
	if err != nil {
		return nil, err
	}
	return s.Cast(ctx, b, in)
}

// Cast validates in and records it on an open ballot.
func (s *VoteService) Cast(ctx context.Context, b *Ballot, in VoteInput) (res *VoteResult, err error) {
	emp, menu := b.Employee, b.Menu
	ctx, span := startSpan(ctx, "VoteService.Cast",
		attribute.Int64("employee.id", emp.ID),
		attribute.Int64("menu.id", menu.ID),
	)
	defer func() { endSpan(span, err) }()

	if fields := validation.Struct(in); fields != nil {
		return nil, &domain.ValidationError{Fields: fields}
	}
	if !in.Like.Valid {
		return nil, &domain.ValidationError{Fields: domain.FieldErrors{"like": []string{validation.MsgInvalidBool}}}
	}

	vote := &domain.Vote{MenuID: menu.ID, EmployeeID: emp.ID, Like: in.Like.Value}
	err = s.store.WithinTx(ctx, func(tx domain.Repositories) error {
		existing, err := tx.Votes().FindByMenuAndEmployee(ctx, menu.ID, emp.ID)
		if err == nil {
			return alreadyVoted(existing, menu)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("find vote: %w", err)
		}

		if err := tx.Votes().Create(ctx, vote); err != nil {
			return fmt.Errorf("create vote: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// Lost a race with a concurrent vote for the same pair. A snapshot taken
		// before the winner committed cannot see its row, so it is read once the
		// transaction is over.
		existing, ferr := s.store.Votes().FindByMenuAndEmployee(ctx, menu.ID, emp.ID)
		if ferr != nil {
			return nil, fmt.Errorf("reload vote after conflict: %w", ferr)
		}
		err = alreadyVoted(existing, menu)
	}

	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		metrics.ObserveVote("conflict")
		s.logger.Info("repeated vote rejected",
			slog.Int64("employee_id", emp.ID),
			slog.Int64("menu_id", menu.ID),
		)
		return nil, err
	case err != nil:
		return nil, err
	}

	metrics.ObserveVote(vote.Action())
	s.logger.Info("vote registered",
		slog.Int64("vote_id", vote.ID),
		slog.Int64("employee_id", emp.ID),
		slog.Int64("menu_id", menu.ID),
		slog.String("action", vote.Action()),
	)
	return &VoteResult{VoteID: vote.ID, Action: vote.Action()}, nil
}

func alreadyVoted(existing *domain.Vote, menu *domain.Menu) error {
	return &domain.ConflictError{
		Message: fmt.Sprintf("You've already %s this menu '%s'.", existing.Action(), menu.DisplayName()),
	}
}

// Tally counts likes and dislikes of every menu launched on day, ordered by menu
// id. Menus without votes report zeros; a day without menus yields an empty list.
func (s *VoteService) Tally(ctx context.Context, day domain.Date) (tallies []domain.Tally, err error) {
	ctx, span := startSpan(ctx, "VoteService.Tally", attribute.String("date", day.String()))
	defer func() { endSpan(span, err) }()

	tallies, err = s.store.Votes().TallyForDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("tally for %s: %w", day, err)
	}
	if tallies == nil {
		tallies = []domain.Tally{}
	}
	return tallies, nil
}

func (s *VoteService) TallyToday(ctx context.Context) ([]domain.Tally, error) {
	return s.Tally(ctx, s.calendar.Today())
}

// Today exposes the calendar for callers that stream results.
func (s *VoteService) Today() domain.Date {
	return s.calendar.Today()
}
