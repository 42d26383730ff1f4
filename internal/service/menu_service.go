package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/observability/metrics"
	"github.com/elebur/VoteAPI/internal/validation"
)

// MsgItemsRequired is reported when a menu arrives without items.
const MsgItemsRequired = "'items' is the required parameter. It can't be null or an empty array"

// Item resolution outcomes.
const (
	ItemCreated = "created"
	ItemUpdated = "updated"
	ItemReused  = "reused"
)

// MenuService creates menus and resolves their items against the restaurant's
// existing dishes.
type MenuService struct {
	store    domain.Store
	calendar Calendar
	logger   *slog.Logger
}

func NewMenuService(store domain.Store, calendar Calendar, logger *slog.Logger) *MenuService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuService{store: store, calendar: calendar, logger: logger}
}

type MenuItemInput struct {
	Title       *string `json:"title" validate:"required,notblank"`
	Description *string `json:"description" validate:"required,notblank"`
}

// CreateMenuInput is the body of POST /menu/.
type CreateMenuInput struct {
	Restaurant *int64          `json:"restaurant" validate:"required"`
	Title      *string         `json:"title"`
	Notes      *string         `json:"notes"`
	LaunchDate *string         `json:"launch_date" validate:"required"`
	Items      []MenuItemInput `json:"items"`
}

// trimmed strips surrounding whitespace from every text field, so titles that
// differ only in padding resolve to the same dish.
func (in CreateMenuInput) trimmed() CreateMenuInput {
	in.Title = validation.Trim(in.Title)
	in.Notes = validation.Trim(in.Notes)
	items := make([]MenuItemInput, len(in.Items))
	for i, it := range in.Items {
		items[i] = MenuItemInput{
			Title:       validation.Trim(it.Title),
			Description: validation.Trim(it.Description),
		}
	}
	in.Items = items
	return in
}

// CreateMenu validates the request, then in one transaction resolves every item
// by (restaurant, title), creates the menu and attaches the items in input order.
// An existing item with a different description is overwritten in place, which
// every other menu sharing it observes.
func (s *MenuService) CreateMenu(ctx context.Context, in CreateMenuInput) (menu *domain.Menu, err error) {
	ctx, span := startSpan(ctx, "MenuService.CreateMenu", attribute.Int("menu.items", len(in.Items)))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	menu, outcomes, err := s.createMenu(ctx, in)
	switch {
	case err == nil:
		metrics.ObserveMenuCreated("success")
		for _, o := range outcomes {
			metrics.ObserveMenuItem(o)
		}
	case IsClientError(err):
		metrics.ObserveMenuCreated("invalid")
	default:
		metrics.ObserveMenuCreated("error")
		s.logger.Error("menu creation failed", slog.String("error", err.Error()))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("menu created",
		slog.Int64("menu_id", menu.ID),
		slog.Int64("restaurant_id", menu.RestaurantID),
		slog.String("launch_date", menu.LaunchDate.String()),
		slog.Any("items", outcomes),
		slog.Duration("duration", time.Since(start)),
	)
	return menu, nil
}

func (s *MenuService) createMenu(ctx context.Context, in CreateMenuInput) (*domain.Menu, []string, error) {
	draft, err := s.validate(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	var (
		created  *domain.Menu
		outcomes []string
	)
	err = s.store.WithinTx(ctx, func(tx domain.Repositories) error {
		outcomes = outcomes[:0]
		ids := make([]int64, 0, len(draft.Items))
		seen := make(map[int64]bool, len(draft.Items))
		for i := range draft.Items {
			item := draft.Items[i]
			outcome, err := resolveItem(ctx, tx, &item)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
			if !seen[item.ID] {
				seen[item.ID] = true
				ids = append(ids, item.ID)
			}
		}

		menu := &domain.Menu{
			RestaurantID: draft.RestaurantID,
			Title:        draft.Title,
			Notes:        draft.Notes,
			LaunchDate:   draft.LaunchDate,
		}
		if err := tx.Menus().Create(ctx, menu); err != nil {
			if errors.Is(err, domain.ErrReference) {
				return unknownRestaurant(draft.RestaurantID)
			}
			return fmt.Errorf("create menu: %w", err)
		}
		if err := tx.Menus().AttachItems(ctx, menu.ID, ids); err != nil {
			return fmt.Errorf("attach items to menu %d: %w", menu.ID, err)
		}

		var err error
		created, err = tx.Menus().GetByID(ctx, menu.ID)
		if err != nil {
			return fmt.Errorf("reload menu %d: %w", menu.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, outcomes, nil
}

// validate checks the whole request before anything is written. Field problems
// are collected together; the empty items rule applies only once they are fixed.
func (s *MenuService) validate(ctx context.Context, in CreateMenuInput) (*domain.Menu, error) {
	in = in.trimmed()
	fields := validation.Struct(in)
	if fields == nil {
		fields = domain.FieldErrors{}
	}

	draft := &domain.Menu{Title: in.Title, Notes: in.Notes}

	if in.Restaurant != nil {
		draft.RestaurantID = *in.Restaurant
		if _, err := s.store.Restaurants().GetByID(ctx, *in.Restaurant); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("check restaurant: %w", err)
			}
			fields.Add("restaurant", invalidPK(*in.Restaurant))
		}
	}

	if in.LaunchDate != nil {
		day, err := domain.ParseDate(*in.LaunchDate)
		if err != nil {
			fields.Add("launch_date", validation.MsgInvalidDate)
		}
		draft.LaunchDate = day
	}

	itemErrors := make([]domain.FieldErrors, len(in.Items))
	itemsInvalid := false
	for i, it := range in.Items {
		itemErrors[i] = domain.FieldErrors{}
		if errs := validation.Struct(it); errs != nil {
			itemErrors[i] = errs
			itemsInvalid = true
			continue
		}
		draft.Items = append(draft.Items, domain.MenuItem{
			RestaurantID: draft.RestaurantID,
			Title:        *it.Title,
			Description:  *it.Description,
		})
	}
	if itemsInvalid {
		fields["items"] = itemErrors
	}

	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}
	if len(in.Items) == 0 {
		return nil, &domain.ValidationError{Message: MsgItemsRequired}
	}
	return draft, nil
}

// resolveItem points item at the restaurant's dish with the same title, creating
// it or overwriting its description as needed.
func resolveItem(ctx context.Context, tx domain.Repositories, item *domain.MenuItem) (string, error) {
	existing, err := tx.MenuItems().FindByTitle(ctx, item.RestaurantID, item.Title)
	switch {
	case err == nil:
		item.ID = existing.ID
		if existing.Description == item.Description {
			return ItemReused, nil
		}
		if err := tx.MenuItems().UpdateDescription(ctx, existing.ID, item.Description); err != nil {
			return "", fmt.Errorf("update menu item %d: %w", existing.ID, err)
		}
		return ItemUpdated, nil
	case errors.Is(err, domain.ErrNotFound):
		// A concurrent creator may insert the same title first; Upsert converges on its row.
		if err := tx.MenuItems().Upsert(ctx, item); err != nil {
			return "", fmt.Errorf("insert menu item %q: %w", item.Title, err)
		}
		return ItemCreated, nil
	default:
		return "", fmt.Errorf("find menu item %q: %w", item.Title, err)
	}
}

func invalidPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func unknownRestaurant(id int64) error {
	return &domain.ValidationError{Fields: domain.FieldErrors{"restaurant": []string{invalidPK(id)}}}
}

func (s *MenuService) GetMenu(ctx context.Context, id int64) (*domain.Menu, error) {
	menu, err := s.store.Menus().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Menu")
	}
	if err != nil {
		return nil, fmt.Errorf("get menu %d: %w", id, err)
	}
	return menu, nil
}

// MenusForDate lists the menus launched on day, ordered by id. Never nil.
func (s *MenuService) MenusForDate(ctx context.Context, day domain.Date) ([]*domain.Menu, error) {
	menus, err := s.store.Menus().ListByLaunchDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list menus for %s: %w", day, err)
	}
	if menus == nil {
		menus = []*domain.Menu{}
	}
	return menus, nil
}

func (s *MenuService) MenusToday(ctx context.Context) ([]*domain.Menu, error) {
	return s.MenusForDate(ctx, s.calendar.Today())
}

var dayPattern = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)$`)

// ParseDay reads a "<y>-<m>-<d>" path segment. Numbers need not be zero padded
// but must form a real calendar date.
func ParseDay(raw string) (domain.Date, error) {
	m := dayPattern.FindStringSubmatch(raw)
	if m == nil {
		return domain.Date{}, invalidDay(raw)
	}
	y, errY := strconv.Atoi(m[1])
	mo, errM := strconv.Atoi(m[2])
	d, errD := strconv.Atoi(m[3])
	if errY != nil || errM != nil || errD != nil {
		return domain.Date{}, invalidDay(raw)
	}

	day := domain.NewDate(y, time.Month(mo), d)
	ty, tm, td := day.Time().Date()
	if ty != y || int(tm) != mo || td != d || y < 1 {
		return domain.Date{}, invalidDay(raw)
	}
	return day, nil
}

func invalidDay(raw string) error {
	return &domain.MalformedInputError{
		Message: fmt.Sprintf("Invalid date - '%s'. Correct format is YYYY-MM-DD", raw),
	}
}
