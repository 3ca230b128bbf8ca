package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/auth"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := `SELECT id, password_hash, is_active FROM users WHERE email = ?`

	row := r.db.WithContext(ctx).Raw(query, email).Row()
	if err := row.Scan(&creds.UserID, &creds.PasswordHash, &creds.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &creds, nil
}

func (r *Repository) GetActor(ctx context.Context, userID int64) (*access.Actor, error) {
	var (
		actor        access.Actor
		role         string
		organization string
	)
	query := `SELECT id, name, email, role, organization, is_active FROM users WHERE id = ?`

	row := r.db.WithContext(ctx).Raw(query, userID).Row()
	if err := row.Scan(&actor.ID, &actor.Name, &actor.Email, &role, &organization, &actor.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	actor.Role = access.Role(role)
	actor.Organization = access.Organization(organization)
	return &actor, nil
}

func (r *Repository) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	row := r.db.WithContext(ctx).Raw(`SELECT password_hash FROM users WHERE id = ?`, userID).Row()
	if err := row.Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID int64, hash string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    now,
		}).Error
}

func (r *Repository) TouchLastLogin(ctx context.Context, userID int64, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Update("last_login_at", now).Error
}
