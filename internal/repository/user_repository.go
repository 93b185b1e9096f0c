package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/booking-service/internal/model"
)

// LocalUserRepo is the MySQL implementation of LocalUserStore.
type LocalUserRepo struct{ DB *sql.DB }

func NewLocalUserRepo(db *sql.DB) *LocalUserRepo { return &LocalUserRepo{DB: db} }

// Upsert inserts the user keyed on the unique external_id.  A concurrent or
// earlier insert for the same external id turns the statement into a no-op
// (the profile is not refreshed) and the existing row is read back.
func (r *LocalUserRepo) Upsert(ctx context.Context, externalID string, p model.Profile) (model.LocalUser, error) {
	externalID = strings.TrimSpace(externalID)
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO booking_users (id, external_id, email, display_name) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE external_id = external_id`,
		uuid.NewString(), externalID, strings.ToLower(strings.TrimSpace(p.Email)), strings.TrimSpace(p.DisplayName))
	if err != nil {
		return model.LocalUser{}, err
	}
	return r.FindByExternalID(ctx, externalID)
}

// FindByExternalID fetches a user by the directory identifier.
func (r *LocalUserRepo) FindByExternalID(ctx context.Context, externalID string) (model.LocalUser, error) {
	return r.get(ctx, "external_id", strings.TrimSpace(externalID))
}

// FindByID fetches a user by local id.
func (r *LocalUserRepo) FindByID(ctx context.Context, id string) (model.LocalUser, error) {
	return r.get(ctx, "id", id)
}

func (r *LocalUserRepo) get(ctx context.Context, column, value string) (model.LocalUser, error) {
	var u model.LocalUser
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,external_id,email,display_name,created_at,updated_at FROM booking_users WHERE "+column+"=? LIMIT 1",
		value).Scan(&u.ID, &u.ExternalID, &u.Email, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocalUser{}, ErrUserNotFound
	}
	return u, err
}
