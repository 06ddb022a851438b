package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreWithSQLite tests store operations with SQLite
func TestStoreWithSQLite(t *testing.T) {
	testBasicOperations(t, "sqlite", nil)
}

// TestStoreWithPostgres tests store operations with PostgreSQL
func TestStoreWithPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	// Recover from panic if Docker is not available
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("Skipping PostgreSQL test: Docker not available (panic: %v)", r)
		}
	}()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: Docker not available (%v)", err)
		return
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	testBasicOperations(t, "postgres", pgContainer)
}

// createFreshStore creates a new store instance for test isolation.
// For PostgreSQL, each call creates a uniquely-named database in the container.
func createFreshStore(t *testing.T, driver string, pgContainer *postgres.PostgresContainer) *Store {
	t.Helper()

	var dsn string
	switch driver {
	case "sqlite":
		dsn = ":memory:"
	case "postgres":
		dbName := "test_" + uuid.New().String()[:8]
		ctx := context.Background()

		createDBCmd := fmt.Sprintf("CREATE DATABASE %s", dbName)
		_, _, err := pgContainer.Exec(
			ctx,
			[]string{"psql", "-U", "testuser", "-d", "testdb", "-c", createDBCmd},
		)
		require.NoError(t, err)

		host, err := pgContainer.Host(ctx)
		require.NoError(t, err)
		port, err := pgContainer.MappedPort(ctx, "5432")
		require.NoError(t, err)
		dsn = fmt.Sprintf(
			"host=%s port=%s user=testuser password=testpass dbname=%s sslmode=disable",
			host, port.Port(), dbName,
		)

		t.Cleanup(func() {
			dropDBCmd := fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)
			_, _, _ = pgContainer.Exec(
				context.Background(),
				[]string{"psql", "-U", "testuser", "-d", "testdb", "-c", dropDBCmd},
			)
		})
	default:
		t.Fatalf("unsupported driver: %s", driver)
	}

	store, err := New(context.Background(), driver, dsn)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newToken(userID, provider, access string) *models.ProviderToken {
	return &models.ProviderToken{
		UserID:      userID,
		Provider:    provider,
		AccessToken: access,
		TokenType:   "Bearer",
		Scopes:      "read write",
	}
}

// testBasicOperations runs every store operation against the given driver.
// Each subtest creates a fresh store instance for isolation.
func testBasicOperations(t *testing.T, driver string, pgContainer *postgres.PostgresContainer) {
	ctx := context.Background()

	t.Run("Health", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)
		assert.NoError(t, store.Health(ctx))
	})

	t.Run("UpsertProviderTokenOverwritesSameProvider", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		first := newToken("user-1", models.ProviderSlack, "sealed-a")
		first.Metadata = models.TokenMetadata{models.MetaTeamID: "T1"}
		saved, err := store.UpsertProviderToken(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "sealed-a", saved.AccessToken)

		second := newToken("user-1", models.ProviderSlack, "sealed-b")
		second.Metadata = models.TokenMetadata{models.MetaTeamID: "T2"}
		saved, err = store.UpsertProviderToken(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, "sealed-b", saved.AccessToken)
		assert.Equal(t, "T2", saved.MetadataValue(models.MetaTeamID))

		tokens, err := store.ListProviderTokens(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, tokens, 1)
	})

	t.Run("GetProviderTokenNotFound", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		_, err := store.GetProviderToken(ctx, "nobody", models.ProviderTrello)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("ListProviderTokensScopedToUser", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		for _, p := range []string{models.ProviderTrello, models.ProviderAsana} {
			_, err := store.UpsertProviderToken(ctx, newToken("user-1", p, "x"))
			require.NoError(t, err)
		}
		_, err := store.UpsertProviderToken(ctx, newToken("user-2", models.ProviderSlack, "y"))
		require.NoError(t, err)

		tokens, err := store.ListProviderTokens(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, models.ProviderAsana, tokens[0].Provider)
		assert.Equal(t, models.ProviderTrello, tokens[1].Provider)

		count, err := store.CountProviderTokens(ctx, models.ProviderSlack)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		count, err = store.CountProviderTokens(ctx, models.ProviderZoom)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("UpdateMetadataAndCredentials", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		saved, err := store.UpsertProviderToken(ctx, newToken("user-1", models.ProviderGoogle, "old"))
		require.NoError(t, err)

		err = store.UpdateProviderTokenMetadata(ctx, "user-1", models.ProviderGoogle,
			models.TokenMetadata{models.MetaAccountEmail: "a@example.com"})
		require.NoError(t, err)

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		saved.AccessToken = "new"
		saved.RefreshToken = "refresh"
		saved.ExpiresAt = &expiry
		require.NoError(t, store.UpdateProviderTokenCredentials(ctx, saved))
		require.NoError(t, store.TouchProviderToken(ctx, saved.ID))

		got, err := store.GetProviderToken(ctx, "user-1", models.ProviderGoogle)
		require.NoError(t, err)
		assert.Equal(t, "new", got.AccessToken)
		assert.Equal(t, "refresh", got.RefreshToken)
		assert.Equal(t, "a@example.com", got.MetadataValue(models.MetaAccountEmail))
		assert.NotNil(t, got.LastUsedAt)
		require.NotNil(t, got.ExpiresAt)
		assert.WithinDuration(t, expiry, *got.ExpiresAt, time.Second)

		err = store.UpdateProviderTokenMetadata(ctx, "user-1", models.ProviderZoom, nil)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("DeleteProviderTokens", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		_, err := store.UpsertProviderToken(ctx, newToken("user-1", models.ProviderMonday, "x"))
		require.NoError(t, err)

		n, err := store.DeleteProviderTokens(ctx, "user-1", models.ProviderMonday)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.DeleteProviderTokens(ctx, "user-1", models.ProviderMonday)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ConsumeOAuthStateOnce", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		state := &models.OAuthState{
			State:       "state-abc",
			UserID:      "user-1",
			Provider:    models.ProviderSlack,
			ReturnURL:   "http://localhost:5173/settings",
			RedirectURI: "http://localhost:8080/slack-callback",
			ExpiresAt:   time.Now().Add(10 * time.Minute),
		}
		require.NoError(t, store.CreateOAuthState(ctx, state))

		got, err := store.ConsumeOAuthState(ctx, "state-abc")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, state.RedirectURI, got.RedirectURI)

		_, err = store.ConsumeOAuthState(ctx, "state-abc")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("ConsumeOAuthStateConcurrently", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		require.NoError(t, store.CreateOAuthState(ctx, &models.OAuthState{
			State:       "race",
			UserID:      "user-1",
			Provider:    models.ProviderAsana,
			ReturnURL:   "http://localhost:5173",
			RedirectURI: "http://localhost:8080/asana-callback",
			ExpiresAt:   time.Now().Add(time.Minute),
		}))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.ConsumeOAuthState(ctx, "race")
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				if !errors.Is(err, ErrRecordNotFound) && !errors.Is(err, ErrStateAlreadyUsed) {
					t.Logf("unexpected consume error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
	})

	t.Run("DeleteExpiredOAuthStates", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		for i, ttl := range []time.Duration{-time.Minute, -time.Second, time.Hour} {
			require.NoError(t, store.CreateOAuthState(ctx, &models.OAuthState{
				State:       fmt.Sprintf("s%d", i),
				UserID:      "user-1",
				Provider:    models.ProviderTrello,
				ReturnURL:   "http://localhost:5173",
				RedirectURI: "http://localhost:8080/trello-callback",
				ExpiresAt:   time.Now().Add(ttl),
			}))
		}

		n, err := store.DeleteExpiredOAuthStates(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = store.ConsumeOAuthState(ctx, "s2")
		assert.NoError(t, err)
	})

	t.Run("SummariesScopedAndPaginated", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		for i := range 3 {
			require.NoError(t, store.CreateSummary(ctx, &models.Summary{
				UserID:       "user-1",
				MeetingTitle: fmt.Sprintf("Standup %d", i),
				Summary:      "notes",
				ActionItems:  models.ActionItems{{Text: "ship it"}},
			}))
		}
		other := &models.Summary{UserID: "user-2", MeetingTitle: "Private"}
		require.NoError(t, store.CreateSummary(ctx, other))

		list, page, err := store.ListSummaries(ctx, "user-1", NewPaginationParams(1, 2, ""))
		require.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, int64(3), page.Total)
		assert.True(t, page.HasNext)

		got, err := store.GetSummary(ctx, "user-1", list[0].ID)
		require.NoError(t, err)
		require.Len(t, got.ActionItems, 1)
		assert.Equal(t, "ship it", got.ActionItems[0].Text)

		_, err = store.GetSummary(ctx, "user-1", other.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("AuditLogs", func(t *testing.T) {
		store := createFreshStore(t, driver, pgContainer)

		now := time.Now()
		logs := []*models.AuditLog{
			{
				ID:          uuid.New().String(),
				EventType:   models.EventIntegrationConnected,
				EventTime:   now,
				Severity:    models.SeverityInfo,
				ActorUserID: "user-1",
				Provider:    models.ProviderSlack,
				Action:      "connected",
				Success:     true,
				CreatedAt:   now,
			},
			{
				ID:          uuid.New().String(),
				EventType:   models.EventIntegrationConnectFailed,
				EventTime:   now,
				Severity:    models.SeverityWarning,
				ActorUserID: "user-1",
				Provider:    models.ProviderAsana,
				Action:      "token exchange failed",
				Success:     false,
				CreatedAt:   now.Add(-100 * 24 * time.Hour),
			},
		}
		require.NoError(t, store.CreateAuditLogBatch(ctx, logs))

		failed := false
		list, page, err := store.ListAuditLogs(ctx, NewPaginationParams(1, 10, ""),
			AuditLogFilters{ActorUserID: "user-1", Success: &failed})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, models.ProviderAsana, list[0].Provider)

		n, err := store.DeleteOldAuditLogs(ctx, now.Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestGetDialector(t *testing.T) {
	_, err := GetDialector("mysql", "dsn")
	assert.Error(t, err)

	_, err = GetDialector("sqlite", "")
	assert.Error(t, err)

	d, err := GetDialector("sqlite", ":memory:")
	require.NoError(t, err)
	assert.NotNil(t, d)

	assert.Equal(t, []string{"postgres", "sqlite"}, SupportedDrivers())
}
