package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/validation"
	"github.com/elebur/VoteAPI/pkg/cache"
)

// RestaurantService registers restaurants and serves them from a TTL cache.
// Restaurants cannot be changed through the API, so cached entries never go stale.
type RestaurantService struct {
	store  domain.Store
	cache  *cache.Cache[domain.Restaurant]
	logger *slog.Logger
}

func NewRestaurantService(store domain.Store, cacheTTL time.Duration, logger *slog.Logger) *RestaurantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestaurantService{
		store:  store,
		cache:  cache.New[domain.Restaurant](cacheTTL),
		logger: logger,
	}
}

// CreateRestaurantInput is the body of POST /restaurant/.
type CreateRestaurantInput struct {
	Name     *string `json:"name" validate:"required,min=1"`
	Username *string `json:"username" validate:"required,min=1,max=150"`
	Password *string `json:"password" validate:"required,min=1"`
	Email    *string `json:"email" validate:"required,email"`
}

// CreateRestaurant creates the restaurant and its login user. Names may repeat.
func (s *RestaurantService) CreateRestaurant(ctx context.Context, in CreateRestaurantInput) (r *domain.Restaurant, err error) {
	ctx, span := startSpan(ctx, "RestaurantService.CreateRestaurant")
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
		r = &domain.Restaurant{UserID: &user.ID, Name: *in.Name}
		if err := tx.Restaurants().Create(ctx, r); err != nil {
			return fmt.Errorf("create restaurant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("restaurant created",
		slog.Int64("restaurant_id", r.ID),
		slog.String("name", r.Name),
	)
	return r, nil
}

func (s *RestaurantService) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	r, err := s.cache.GetOrLoad(restaurantKey(id), func() (domain.Restaurant, error) {
		r, err := s.store.Restaurants().GetByID(ctx, id)
		if err != nil {
			return domain.Restaurant{}, err
		}
		return *r, nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Restaurant")
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, err)
	}
	return &r, nil
}

func restaurantKey(id int64) string {
	return "restaurant:" + strconv.FormatInt(id, 10)
}

// PurgeCache evicts expired restaurant lookups and reports how many went.
func (s *RestaurantService) PurgeCache() int {
	return s.cache.Purge()
}
