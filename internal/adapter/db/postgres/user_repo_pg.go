package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"traced-user-service/internal/domain/user"
	pkgerrors "traced-user-service/pkg/errors"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UserRepoPG implements the user Repository on top of GORM. It targets
// PostgreSQL in production and runs unchanged on SQLite.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"` // Auto-assigned on insert
	Name  string `gorm:"not null;index"`
	Email string `gorm:"not null;uniqueIndex"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m UserSchema) toDomain() user.User {
	return user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// Migrate creates the users table and its indexes when they are missing.
func (r *UserRepoPG) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return classifyError(err, "migrate users table")
	}
	return nil
}

// Create inserts a new user and returns the ID assigned by the database.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, pkgerrors.NewInternalError("user cannot be nil", nil)
	}

	model := UserSchema{
		Name:  u.Name,
		Email: u.Email,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return 0, classifyError(err, "create user")
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// GetByID retrieves a user by primary key.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
		} else {
			r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		}
		return nil, classifyError(err, "get user")
	}

	u := model.toDomain()
	return &u, nil
}

// List retrieves every user ordered by ID.
func (r *UserRepoPG) List(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, classifyError(err, "list users")
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = model.toDomain()
	}

	return users, nil
}

// Exists reports whether the users table holds at least one row.
func (r *UserRepoPG) Exists(ctx context.Context) (bool, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Select("id").Take(&model).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, classifyError(err, "check users")
	}
}

// CreateBatch inserts users in a single transaction. Rows whose email is
// already present are skipped, so concurrent seeders cannot fail each other.
// It returns the number of rows actually inserted.
func (r *UserRepoPG) CreateBatch(ctx context.Context, users []user.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	models := make([]UserSchema, len(users))
	for i, u := range users {
		models[i] = UserSchema{Name: u.Name, Email: u.Email}
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&models)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		r.log.Error("failed to insert user batch", zap.Error(err), zap.Int("size", len(users)))
		return 0, classifyError(err, "insert users")
	}

	r.log.Info("user batch inserted", zap.Int64("inserted", inserted), zap.Int("requested", len(users)))
	return inserted, nil
}

// classifyError maps driver and GORM errors onto the application error classes.
func classifyError(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.NewNotFoundError("user", "User not found")
	case isDuplicate(err):
		return pkgerrors.NewAlreadyExistsError("user", "email already registered", err)
	case isUnavailable(err):
		return pkgerrors.NewUnavailableError("database unavailable", err)
	default:
		return pkgerrors.NewInternalError("failed to "+op, err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
