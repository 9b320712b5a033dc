package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteCreateSessions = `CREATE TABLE auth_sessions (
    session_id TEXT NOT NULL PRIMARY KEY,
    session_token TEXT,
    access_token TEXT,
    refresh_token TEXT,
    access_token_expires_at TIMESTAMP NULL,
    user_data TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL
);`

func setupSessionRepo(t *testing.T) (*SessionRepository, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateSessions)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return NewSessionRepository(bunDB), cleanup
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	data, err := repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSessionRepositorySaveAndGet(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	ctx := context.Background()
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	err := repo.Save(ctx, "sid-1", &auth.SessionData{
		SessionToken:         "sess-1",
		AccessToken:          "acc-1",
		RefreshToken:         "ref-1",
		AccessTokenExpiresAt: &expires,
		User:                 &auth.User{ID: "42", Email: "ada@example.com"},
		UpdatedAt:            updated,
	})
	require.NoError(t, err)

	data, err := repo.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "sess-1", data.SessionToken)
	assert.Equal(t, "acc-1", data.AccessToken)
	assert.Equal(t, "ref-1", data.RefreshToken)
	require.NotNil(t, data.AccessTokenExpiresAt)
	assert.WithinDuration(t, expires, *data.AccessTokenExpiresAt, time.Second)
	assert.WithinDuration(t, updated, data.UpdatedAt, time.Second)
	require.NotNil(t, data.User)
	assert.Equal(t, auth.UserID("42"), data.User.ID)
	assert.Equal(t, "ada@example.com", data.User.Email)
}

func TestSessionRepositorySaveOverwrites(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sid-1", &auth.SessionData{SessionToken: "sess-1", AccessToken: "acc-1"}))
	require.NoError(t, repo.Save(ctx, "sid-1", &auth.SessionData{SessionToken: "sess-2"}))

	data, err := repo.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "sess-2", data.SessionToken)
	assert.Empty(t, data.AccessToken)
	assert.Nil(t, data.AccessTokenExpiresAt)
	assert.Nil(t, data.User)
}

func TestSessionRepositoryDelete(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "sid-1", &auth.SessionData{SessionToken: "sess-1"}))
	require.NoError(t, repo.Delete(ctx, "sid-1"))

	data, err := repo.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	// deleting twice is fine
	require.NoError(t, repo.Delete(ctx, "sid-1"))
}

func TestSessionRepositoryPruneIdle(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, "old", &auth.SessionData{SessionToken: "a", UpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, "fresh", &auth.SessionData{SessionToken: "b", UpdatedAt: now}))

	removed, err := repo.PruneIdle(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	data, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = repo.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestSessionRepositoryBacksSessionManager(t *testing.T) {
	repo, cleanup := setupSessionRepo(t)
	defer cleanup()

	ctx := context.Background()
	manager := auth.NewSessionManager(repo, auth.WithManagerLogger(auth.NopLogger{}))
	scoped := manager.Scope("sid-9", nil)

	resp := &auth.SuccessResponse{
		Meta: auth.SuccessMeta{SessionToken: "sess-9", RefreshToken: "ref-9"},
	}
	require.NoError(t, scoped.ProcessAuthSession(ctx, resp, "", ""))

	token, err := scoped.SessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", token)

	refresh, err := scoped.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref-9", refresh)
}
