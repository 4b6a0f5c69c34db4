package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/testutil"
)

func newClient(t *testing.T, baseURL string, cacheTTL time.Duration) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.Config{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
		CacheTTL: cacheTTL,
	})
	require.NoError(t, err)
	return client
}

func TestClient_FetchesSettingsSections(t *testing.T) {
	srv := testutil.NewServer(t)
	client := newClient(t, srv.URL(), 0)
	ctx := context.Background()

	general, err := client.GeneralSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "flowmark-test", general.ServerName)

	playback, err := client.PlaybackSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 600, playback.Delays.EpisodeEnd)
	require.Equal(t, 1800, playback.Delays.MovieEnd)

	limits, err := client.LimitSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 8000, limits.PerStreamKbps)
}

func TestClient_CachesSettingsGets(t *testing.T) {
	srv := testutil.NewServer(t)
	client := newClient(t, srv.URL(), time.Minute)
	ctx := context.Background()

	_, err := client.PlaybackSettings(ctx)
	require.NoError(t, err)
	_, err = client.PlaybackSettings(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, srv.GetCount("playback"), "second read should come from cache")
}

func TestClient_UpdateInvalidatesCache(t *testing.T) {
	srv := testutil.NewServer(t)
	client := newClient(t, srv.URL(), time.Minute)
	ctx := context.Background()

	before, err := client.PlaybackSettings(ctx)
	require.NoError(t, err)

	updated := *before
	updated.Delays.EpisodeEnd = 900
	require.NoError(t, client.UpdatePlaybackSettings(ctx, updated))

	after, err := client.PlaybackSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 900, after.Delays.EpisodeEnd, "post-update read must bypass the stale cache entry")
	require.Equal(t, 2, srv.GetCount("playback"))
}

func TestClient_UpdateFailureReturnsStatusError(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.FailPuts = true
	client := newClient(t, srv.URL(), 0)

	err := client.UpdateLimitSettings(context.Background(), api.LimitSettings{UploadKbps: 1})

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestClient_SendsAuthAndCorrelationHeaders(t *testing.T) {
	var gotKey, gotRequestID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	client := newClient(t, backend.URL, 0)
	_, err := client.GeneralSettings(context.Background())
	require.NoError(t, err)

	require.Equal(t, "test-key", gotKey)
	require.NotEmpty(t, gotRequestID, "every request carries a correlation ID")
}

func TestClient_Streams(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.Streams = []api.Stream{
		{ID: "s1", User: "alice", Title: "Movie Night", BitrateKbps: 4200, State: "playing"},
		{ID: "s2", User: "bob", Title: "Old Show", BitrateKbps: 1500, State: "throttled"},
	}

	client := newClient(t, srv.URL(), 0)
	streams, err := client.Streams(context.Background())
	require.NoError(t, err)
	require.Len(t, streams, 2)
	require.Equal(t, "alice", streams[0].User)
	require.Equal(t, "throttled", streams[1].State)
}

func TestClient_BandwidthHistoryWindow(t *testing.T) {
	var gotMinutes string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMinutes = r.URL.Query().Get("minutes")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	client := newClient(t, backend.URL, 0)

	_, err := client.BandwidthHistory(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "30", gotMinutes)

	// Sub-minute windows round up to the smallest the server accepts.
	_, err = client.BandwidthHistory(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, "1", gotMinutes)
}
