package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// LockPolicy locks an account for LockFor after MaxFailed consecutive
// failed logins.
type LockPolicy struct {
	MaxFailed int
	LockFor   time.Duration
}

type UserRepository struct {
	db     *gorm.DB
	policy LockPolicy
	now    func() time.Time
}

func NewUserRepository(db *gorm.DB, policy LockPolicy) *UserRepository {
	return &UserRepository{db: db, policy: policy, now: time.Now}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.PasswordChangedAt.IsZero() {
		u.PasswordChangedAt = r.now()
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ? AND deleted_at IS NULL", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ? AND deleted_at IS NULL", id)
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &u, nil
}

// UpdateLoginAttempt resets the failure counter on success. On failure it
// increments the counter and sets locked_until once the policy threshold
// is reached.
func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	now := r.now()
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id)

	var err error
	if success {
		err = tx.Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      now,
		}).Error
	} else {
		err = tx.Updates(map[string]any{
			"failed_login_count": gorm.Expr("failed_login_count + 1"),
			"locked_until": gorm.Expr(
				"CASE WHEN failed_login_count + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
				r.policy.MaxFailed, now.Add(r.policy.LockFor),
			),
		}).Error
	}
	if err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":       hash,
		"password_changed_at": r.now(),
	})
	if res.Error != nil {
		return fmt.Errorf("updating password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
