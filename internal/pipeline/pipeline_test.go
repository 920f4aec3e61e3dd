package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swimlog/swimsync/internal/config"
	"github.com/swimlog/swimsync/internal/garmin"
	"github.com/swimlog/swimsync/internal/secrets"
)

// fakeStore satisfies secrets.Store without any external tooling.
type fakeStore struct {
	authenticated bool
	logouts       int
}

func (f *fakeStore) CheckAvailable(ctx context.Context) error { return nil }
func (f *fakeStore) IsUnlocked(ctx context.Context) bool      { return f.authenticated }

func (f *fakeStore) Authenticate(ctx context.Context) error {
	f.authenticated = true
	return nil
}

func (f *fakeStore) GetCredentials(ctx context.Context, itemName string) (*secrets.Credentials, error) {
	if !f.authenticated {
		return nil, secrets.ErrAuthenticationRequired
	}
	if itemName != "Garmin User1" {
		return nil, fmt.Errorf("%w: %q", secrets.ErrItemNotFound, itemName)
	}
	return &secrets.Credentials{
		Username: "test@example.com",
		Password: "testpass123",
	}, nil
}

func (f *fakeStore) Logout(ctx context.Context) {
	f.authenticated = false
	f.logouts++
}

// garminFixture serves the endpoints one sync touches. mfa toggles whether
// signin answers with a token or an unresolved ticket.
func garminFixture(t *testing.T, mfa bool) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	token := map[string]any{
		"access_token": "access-token-1",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sso/signin", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["username"] != "test@example.com" || body["password"] != "testpass123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		if mfa {
			writeJSON(w, http.StatusOK, map[string]any{"ticket": "mfa_ticket"})
			return
		}
		writeJSON(w, http.StatusOK, token)
	})
	mux.HandleFunc("/sso/mfa/verify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["code"] != "123456" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "bad code"})
			return
		}
		writeJSON(w, http.StatusOK, token)
	})
	mux.HandleFunc("/userprofile-service/socialProfile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"displayName": "swimmer42"})
	})
	mux.HandleFunc("/activitylist-service/activities/search/activities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{
				"activityId": 123,
				"activityType": map[string]any{
					"typeKey":      "lap_swimming",
					"parentTypeId": 26,
				},
				"distance": 500.0,
				"duration": 900.0,
				"lapCount": 20,
			},
		})
	})
	mux.HandleFunc("/activity-service/activity/123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"activityId": 123,
			"summaryDTO": map[string]any{
				"avgSwolf":             40.0,
				"totalNumberOfStrokes": 300,
				"numberOfLaps":         20,
			},
		})
	})
	mux.HandleFunc("/usersummary-service/usersummary/daily/swimmer42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"activeKilocalories": 400.0})
	})
	mux.HandleFunc("/wellness-service/wellness/dailySleepData/swimmer42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"dailySleepDTO": map[string]any{"sleepTimeSeconds": 27000},
		})
	})
	mux.HandleFunc("/weight-service/weight/dateRange", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"totalAverage": map[string]any{"weight": 72500.0, "bodyFat": 18.5},
		})
	})
	mux.HandleFunc("/hrv-service/hrv/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"hrvSummary": map[string]any{"lastNightAvg": 54.0, "status": "BALANCED"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{StateDir: filepath.Join(dir, "state")}
	cfg.Garmin.Endpoint = endpoint
	cfg.Garmin.CredentialItem = "Garmin User1"
	cfg.Export.CSVPath = filepath.Join(dir, "out.csv")
	return cfg
}

func TestPipeline_SyncScenario(t *testing.T) {
	server := garminFixture(t, false)
	cfg := testConfig(t, server.URL)
	store := &fakeStore{}

	p, err := NewWithStore(cfg, store)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Authenticate(ctx))

	// The secret store session is released once credentials are consumed.
	assert.Equal(t, 1, store.logouts)

	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Sync(ctx, day, day))

	file, err := os.Open(cfg.Export.CSVPath)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byName := make(map[string]string, len(rows[0]))
	for i, name := range rows[0] {
		byName[name] = rows[1][i]
	}

	assert.Equal(t, "2023-01-01", byName["date"])
	assert.Equal(t, "1", byName["swim_activity_count"])
	assert.Equal(t, "0.5", byName["swim_distance_km"])
	assert.Equal(t, "15", byName["swim_duration_min"])
	assert.Equal(t, "20", byName["swim_laps"])
	assert.Equal(t, "1", byName["pool_swim_count"])
	assert.Equal(t, "0", byName["open_water_swim_count"])
	assert.Equal(t, "40", byName["avg_swolf"])
	assert.Equal(t, "300", byName["total_strokes"])
	assert.Equal(t, "7.5", byName["sleep_hours"])
	assert.Equal(t, "72.5", byName["weight_kg"])
	assert.Equal(t, "BALANCED", byName["hrv_status"])
	// Training status and VO2max endpoints answer 404 here; the row
	// still comes out with those columns zeroed.
	assert.Equal(t, "", byName["training_status"])
	assert.Equal(t, "0", byName["vo2max"])
}

func TestPipeline_ReusesPersistedSession(t *testing.T) {
	server := garminFixture(t, false)
	cfg := testConfig(t, server.URL)
	store := &fakeStore{}

	p, err := NewWithStore(cfg, store)
	require.NoError(t, err)
	require.NoError(t, p.Authenticate(context.Background()))

	// A second pipeline over the same state dir skips the secret store.
	secondStore := &fakeStore{}
	p2, err := NewWithStore(cfg, secondStore)
	require.NoError(t, err)
	require.NoError(t, p2.Authenticate(context.Background()))
	assert.Equal(t, 0, secondStore.logouts)
	assert.False(t, secondStore.authenticated)
}

func TestPipeline_MFAFlow(t *testing.T) {
	server := garminFixture(t, true)
	cfg := testConfig(t, server.URL)
	store := &fakeStore{}

	p, err := NewWithStore(cfg, store)
	require.NoError(t, err)

	ctx := context.Background()
	err = p.Authenticate(ctx)
	require.ErrorIs(t, err, ErrMFAPending)

	// The ticket survives to a fresh process.
	p2, err := NewWithStore(cfg, &fakeStore{})
	require.NoError(t, err)
	require.NoError(t, p2.ResumeMFA(ctx, "123456"))

	session, err := p2.SessionStore().LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "swimmer42", session.DisplayName)
}

func TestPipeline_MissingCredentialItem(t *testing.T) {
	server := garminFixture(t, false)
	cfg := testConfig(t, server.URL)
	cfg.Garmin.CredentialItem = "No Such Item"

	p, err := NewWithStore(cfg, &fakeStore{})
	require.NoError(t, err)

	err = p.Authenticate(context.Background())
	assert.ErrorIs(t, err, secrets.ErrItemNotFound)
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	previous := retryBaseWait
	retryBaseWait = time.Millisecond
	t.Cleanup(func() { retryBaseWait = previous })

	t.Run("recovers from transient failures", func(t *testing.T) {
		calls := 0
		value, err := withRetry(ctx, func() (string, error) {
			calls++
			if calls < 3 {
				return "", garmin.ErrRemoteUnavailable
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", value)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		calls := 0
		_, err := withRetry(ctx, func() (string, error) {
			calls++
			return "", garmin.ErrRemoteUnavailable
		})
		assert.ErrorIs(t, err, garmin.ErrRemoteUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry auth failures", func(t *testing.T) {
		calls := 0
		_, err := withRetry(ctx, func() (string, error) {
			calls++
			return "", garmin.ErrNotAuthenticated
		})
		assert.ErrorIs(t, err, garmin.ErrNotAuthenticated)
		assert.Equal(t, 1, calls)
	})
}

func TestPipeline_LogoutSafeWithoutSession(t *testing.T) {
	server := garminFixture(t, false)
	cfg := testConfig(t, server.URL)
	store := &fakeStore{}

	p, err := NewWithStore(cfg, store)
	require.NoError(t, err)

	// Never authenticated: logout must still be a safe no-op.
	p.Logout(context.Background())
	p.Logout(context.Background())
}
