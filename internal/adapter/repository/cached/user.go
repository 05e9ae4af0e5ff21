package cached

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"traced-user-service/internal/adapter/cache"
	domain "traced-user-service/internal/domain/user"
	"traced-user-service/internal/usecase/user"
)

// UserRepository decorates a database repository with a read-through
// cache for single-user lookups. Everything else goes straight to the
// database so listings always reflect committed rows.
type UserRepository struct {
	db    user.Repository
	cache cache.UserCache
	log   *zap.Logger
	group singleflight.Group
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new cached repository.
func NewUserRepository(db user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		db:    db,
		cache: c,
		log:   log,
	}
}

// Create inserts into the database and warms the cache with the new row.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.db.Create(ctx, u)
	if err != nil {
		return 0, err
	}

	stored := domain.User{ID: id, Name: u.Name, Email: u.Email}
	if err := r.cache.Set(ctx, &stored); err != nil {
		r.log.Warn("failed to cache created user", zap.Int64("id", id), zap.Error(err))
	}
	return id, nil
}

// GetByID reads through the cache. Concurrent misses for the same ID share
// one database query, and each caller stops waiting when its own ctx ends.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u, err := r.cache.Get(ctx, id); err != nil {
		r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
	} else if u != nil {
		return u, nil
	}

	ch := r.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		// the flight is shared, so one caller canceling must not fail the rest
		flightCtx := context.WithoutCancel(ctx)
		u, err := r.db.GetByID(flightCtx, id)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(flightCtx, u); err != nil {
			r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
		}
		return u, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		r.log.Debug("user lookup shared with concurrent request", zap.Int64("id", id))
	}

	// copy so callers sharing a flight never alias each other
	u := *res.Val.(*domain.User)
	return &u, nil
}

// List delegates to the database repository.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.db.List(ctx)
}

// Exists delegates to the database repository.
func (r *UserRepository) Exists(ctx context.Context) (bool, error) {
	return r.db.Exists(ctx)
}

// CreateBatch delegates to the database repository. Seeded rows are cached
// lazily on first read.
func (r *UserRepository) CreateBatch(ctx context.Context, users []domain.User) (int64, error) {
	return r.db.CreateBatch(ctx, users)
}
