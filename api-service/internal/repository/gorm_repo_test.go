package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.UserModel{}, &domain.MessageModel{}))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func TestGormUserRepository_CreateAndLookup(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &domain.User{
		Email:        "alice@campus.edu",
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []string{"user"}, user.Roles)

	got, err := repo.GetByEmail(ctx, "ALICE@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Alice", got.DisplayName)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, got.Roles)

	_, err = repo.GetByEmail(ctx, "nobody@campus.edu")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormUserRepository_Duplicates(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{Email: "a@campus.edu", Username: "a", PasswordHash: "x"}))

	err := repo.Create(ctx, &domain.User{Email: "a@campus.edu", Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = repo.Create(ctx, &domain.User{Email: "b@campus.edu", Username: "a", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGormUserRepository_Update(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &domain.User{Email: "a@campus.edu", Username: "a", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))

	user.DisplayName = "Quiet Heron"
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiet Heron", got.DisplayName)

	err = repo.Update(ctx, &domain.User{ID: "missing"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormMessageRepository_ListRecentOldestFirst(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID:         fmt.Sprintf("m%d", i),
			RoomID:     "lobby",
			AuthorID:   "alice@campus.edu",
			AuthorName: "Alice",
			Text:       fmt.Sprintf("hello %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Message{
		ID: "other", RoomID: "library", AuthorID: "bob@campus.edu", Text: "shh", CreatedAt: base,
	}))

	msgs, err := repo.ListRecent(ctx, "lobby", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m3", "m4", "m5"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Equal(t, "hello 5", msgs[2].Text)

	msgs, err = repo.ListRecent(ctx, "empty-room", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, repo.Close())
}
