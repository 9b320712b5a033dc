package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/uptrace/bun"
)

// SessionModel is the Bun model for persisted platform sessions.
type SessionModel struct {
	bun.BaseModel `bun:"table:auth_sessions"`

	SessionID            string     `bun:"session_id,pk"`
	SessionToken         string     `bun:"session_token"`
	AccessToken          string     `bun:"access_token"`
	RefreshToken         string     `bun:"refresh_token"`
	AccessTokenExpiresAt *time.Time `bun:"access_token_expires_at,nullzero"`
	User                 *auth.User `bun:"user_data,type:jsonb"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull"`
}

// SessionRepository implements auth.SessionStore using Bun.
type SessionRepository struct {
	db *bun.DB
}

var _ auth.SessionStore = (*SessionRepository)(nil)

// NewSessionRepository creates a new repository.
func NewSessionRepository(db *bun.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSchema creates the sessions table when it does not exist.
func (r *SessionRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*SessionModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get implements auth.SessionStore.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*auth.SessionData, error) {
	var model SessionModel
	err := r.db.NewSelect().
		Model(&model).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toSessionData(&model), nil
}

// Save implements auth.SessionStore.
func (r *SessionRepository) Save(ctx context.Context, sessionID string, data *auth.SessionData) error {
	model := fromSessionData(sessionID, data)
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (session_id) DO UPDATE").
		Set("session_token = EXCLUDED.session_token").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("access_token_expires_at = EXCLUDED.access_token_expires_at").
		Set("user_data = EXCLUDED.user_data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// Delete implements auth.SessionStore.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	return err
}

// PruneIdle deletes sessions not updated since before. It returns the number
// of rows removed.
func (r *SessionRepository) PruneIdle(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("updated_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func toSessionData(m *SessionModel) *auth.SessionData {
	return &auth.SessionData{
		SessionToken:         m.SessionToken,
		AccessToken:          m.AccessToken,
		RefreshToken:         m.RefreshToken,
		AccessTokenExpiresAt: m.AccessTokenExpiresAt,
		User:                 m.User,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromSessionData(sessionID string, d *auth.SessionData) *SessionModel {
	if d == nil {
		return &SessionModel{SessionID: sessionID}
	}
	return &SessionModel{
		SessionID:            sessionID,
		SessionToken:         d.SessionToken,
		AccessToken:          d.AccessToken,
		RefreshToken:         d.RefreshToken,
		AccessTokenExpiresAt: d.AccessTokenExpiresAt,
		User:                 d.User,
		UpdatedAt:            d.UpdatedAt,
	}
}
