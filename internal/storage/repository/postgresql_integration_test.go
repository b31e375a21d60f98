package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agoraplace/auth-service/internal/models"
)

func TestStorage_CreateUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	token := "verification-token"
	expires := time.Now().Add(24 * time.Hour)

	uid, err := storage.CreateUser(ctx, models.User{
		Email:                 "alice@example.com",
		Firstname:             "Alice",
		Lastname:              "Martin",
		PhoneNumber:           "+33612345678",
		IsCguAccepted:         true,
		IsVgclAccepted:        true,
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
	}, "hashed-password")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	// пользователь создан непроверенным и с первой записью истории паролей
	user, err := storage.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.False(t, user.IsEmailVerified)
	assert.Equal(t, "hashed-password", user.LatestPasswordHash)

	entries, err := storage.ListPasswordEntries(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// повторная вставка той же почты отклоняется ограничением уникальности
	_, err = storage.CreateUser(ctx, models.User{
		Email:                 "alice@example.com",
		Firstname:             "Alice",
		Lastname:              "Martin",
		IsCguAccepted:         true,
		IsVgclAccepted:        true,
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
	}, "other-hash")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStorage_ExistsByEmail(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, uuid.New().String(), "alice@example.com", "hash", true)

	exists, err := storage.ExistsByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.ExistsByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorage_GetUserByEmail_LatestPassword(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	userUID := uuid.New().String()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, userUID, "alice@example.com", "old-hash", true)
	factory.AppendPassword(t, userUID, "new-hash", time.Now().Add(time.Hour))

	// действующий пароль — последняя запись истории
	user, err := storage.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", user.LatestPasswordHash)

	entries, err := storage.ListPasswordEntries(ctx, userUID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new-hash", entries[0].PasswordHash)
	assert.Equal(t, "old-hash", entries[1].PasswordHash)
}

func TestStorage_GetUserByEmail_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_VerificationTokenLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	userUID := uuid.New().String()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, userUID, "alice@example.com", "hash", false)
	factory.SetVerificationToken(t, userUID, "tok", time.Now().Add(24*time.Hour))

	found, err := storage.FindUserByVerificationToken(ctx, "tok", time.Now())
	require.NoError(t, err)
	assert.Equal(t, userUID, found.UID)

	// просроченный токен не находится
	_, err = storage.FindUserByVerificationToken(ctx, "tok", time.Now().Add(25*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.MarkEmailVerified(ctx, userUID))

	user, err := storage.GetUserByUID(ctx, userUID)
	require.NoError(t, err)
	assert.True(t, user.IsEmailVerified)

	// токен обнулён, повторное подтверждение невозможно
	_, err = storage.FindUserByVerificationToken(ctx, "tok", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_ResetRequestLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	req := models.ResetRequest{
		ID:        uuid.New().String(),
		Email:     "alice@example.com",
		Token:     "reset-token",
		ExpiredAt: time.Now().Add(5 * time.Hour),
	}
	require.NoError(t, storage.CreateResetRequest(ctx, req))

	got, err := storage.GetResetRequestByToken(ctx, "reset-token")
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Nil(t, got.SentAt)
	assert.Nil(t, got.EditedAt)

	require.NoError(t, storage.MarkResetSent(ctx, req.ID, time.Now()))
	require.NoError(t, storage.ConsumeResetRequest(ctx, "reset-token", time.Now()))

	// запись не удаляется, признак использования — edited_at
	got, err = storage.GetResetRequestByToken(ctx, "reset-token")
	require.NoError(t, err)
	assert.NotNil(t, got.SentAt)
	assert.NotNil(t, got.EditedAt)

	_, err = storage.GetResetRequestByToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_LoginHistory(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid1 := uuid.New().String()
	uid2 := uuid.New().String()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, uid1, "user1@example.com", "hash1", true)
	factory.CreateUser(t, uid2, "user2@example.com", "hash2", true)

	require.NoError(t, storage.RecordLogin(ctx, uid1))
	require.NoError(t, storage.RecordLogin(ctx, uid1))
	require.NoError(t, storage.RecordLogin(ctx, uid2))

	own, err := storage.ListLoginEvents(ctx, uid1)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, e := range own {
		assert.Equal(t, uid1, e.UserUID)
	}

	all, err := storage.ListAllLoginEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStorage_Roles(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	userUID := uuid.New().String()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, userUID, "admin@example.com", "hash", true)
	factory.AssignRoleByName(t, userUID, "USER")
	factory.AssignRoleByName(t, userUID, "SUPER_ADMIN")

	roles, err := storage.ListUserRoles(ctx, userUID)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	// сортировка по убыванию ранга
	assert.Equal(t, "SUPER_ADMIN", roles[0].Name)
	assert.Equal(t, models.PowerSuperAdmin, roles[0].Power)
	assert.Equal(t, "USER", roles[1].Name)

	// пользователь без ролей — пустой список без ошибки
	empty, err := storage.ListUserRoles(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_ContextCancellation(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.ExistsByEmail(ctx, "alice@example.com")
	assert.Error(t, err)
}
