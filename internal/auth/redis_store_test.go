package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/auth"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisSessionStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	store := auth.NewRedisSessionStore(client)

	t.Run("Lifecycle", func(t *testing.T) {
		session := &auth.Session{
			ID:        uuid.New(),
			TeacherID: 3,
			CSRFToken: "csrf",
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Create(ctx, session))

		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.TeacherID)
		assert.Equal(t, "csrf", got.CSRFToken)

		ttl, err := client.TTL(ctx, "classrooms:session:"+session.ID.String()).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)

		require.NoError(t, store.Delete(ctx, session.ID))
		_, err = store.Get(ctx, session.ID)
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("RejectsExpired", func(t *testing.T) {
		session := &auth.Session{ID: uuid.New(), TeacherID: 3, ExpiresAt: time.Now().Add(-time.Second)}
		assert.Error(t, store.Create(ctx, session))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})
}
