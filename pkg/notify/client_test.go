package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykarpenko/solvebot-backend/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(config.NotifyConfig{
		BaseURL:   baseURL,
		Token:     "test-token",
		Timeout:   2 * time.Second,
		RatePerS:  100,
		RateBurst: 10,
	})
	require.NoError(t, err)
	return client
}

func TestNotifySendsMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Notify(context.Background(), 42, "hello"))

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, int64(42), gotBody.ChatID)
	assert.Equal(t, "hello", gotBody.Text)
}

func TestNotifyRejectedStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Notify(context.Background(), 42, "hello")
	assert.ErrorContains(t, err, "403")
}

func TestNotifyValidatesInput(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")

	assert.Error(t, client.Notify(context.Background(), 0, "hello"))
	assert.Error(t, client.Notify(context.Background(), 42, ""))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(config.NotifyConfig{Token: "x"})
	assert.Error(t, err)

	_, err = New(config.NotifyConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}
