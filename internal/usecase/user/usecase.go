package user

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	domain "traced-user-service/internal/domain/user"
	"traced-user-service/pkg/logger"
)

// Span names, one per operation.
const (
	SpanGetUsers     = "get_users"
	SpanReadUser     = "read_user"
	SpanCreateUser   = "create_user"
	SpanPrefillUsers = "prefill_users"
)

// Repository defines the interface for user data access operations.
// Implementations return errors classified with pkg/errors.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)            // Insert one user, returns the assigned ID
	GetByID(ctx context.Context, id int64) (*domain.User, error)          // Retrieve user by ID
	List(ctx context.Context) ([]domain.User, error)                      // Retrieve all users
	Exists(ctx context.Context) (bool, error)                             // Report whether any user row exists
	CreateBatch(ctx context.Context, users []domain.User) (int64, error) // Insert users, skipping emails already present
}

// Usecase implements the user operations. Every operation runs inside its own span.
type Usecase struct {
	repo   Repository
	tracer trace.Tracer
	log    *zap.Logger
}

// New creates a Usecase. A nil tracer disables span creation.
func New(r Repository, tracer trace.Tracer, log *zap.Logger) *Usecase {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Usecase{repo: r, tracer: tracer, log: log}
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateUser inserts a new user and returns it with its assigned ID.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (_ *CreateUserResponse, err error) {
	ctx, span := uc.tracer.Start(ctx, SpanCreateUser)
	defer func() { finishSpan(span, err) }()

	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	id, err := uc.repo.Create(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		log.Warn("failed to create user", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user.id", id))

	return &CreateUserResponse{
		ID:    id,
		Name:  in.Name,
		Email: in.Email,
	}, nil
}

// GetUser retrieves a user by ID. A missing row yields a NotFoundError.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (_ *GetUserResponse, err error) {
	ctx, span := uc.tracer.Start(ctx, SpanReadUser, trace.WithAttributes(attribute.Int64("user.id", in.ID)))
	defer func() { finishSpan(span, err) }()

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		logger.WithContext(ctx, uc.log).Debug("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &GetUserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}, nil
}

// ListUsers retrieves every user.
func (uc *Usecase) ListUsers(ctx context.Context) (_ *ListUsersResponse, err error) {
	ctx, span := uc.tracer.Start(ctx, SpanGetUsers)
	defer func() { finishSpan(span, err) }()

	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i, du := range domainUsers {
		users[i] = User{
			ID:    du.ID,
			Name:  du.Name,
			Email: du.Email,
		}
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))

	return &ListUsersResponse{Users: users}, nil
}

// SeedUsers inserts the default users when the table is empty and does
// nothing otherwise. Concurrent callers that both observe an empty table
// are safe: the batch insert skips emails that already exist.
func (uc *Usecase) SeedUsers(ctx context.Context) (_ *SeedUsersResponse, err error) {
	ctx, span := uc.tracer.Start(ctx, SpanPrefillUsers)
	defer func() { finishSpan(span, err) }()

	log := logger.WithContext(ctx, uc.log)

	exists, err := uc.repo.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing users: %w", err)
	}
	if exists {
		log.Info("users table is not empty, skipping seed")
		span.SetAttributes(attribute.Bool("seed.skipped", true))
		return &SeedUsersResponse{Seeded: false}, nil
	}

	inserted, err := uc.repo.CreateBatch(ctx, domain.SeedUsers())
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}

	log.Info("seeded users table", zap.Int64("inserted", inserted))
	span.SetAttributes(attribute.Int64("seed.inserted", inserted))

	return &SeedUsersResponse{Seeded: true, Inserted: inserted}, nil
}
