package commerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPProvider(&config.CommerceConfig{BaseURL: server.URL, TimeoutSeconds: 2})
}

func TestHTTPProvider_GetUserProfile(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/users/u1/profile", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"userId":"u1","recentInteractionIds":["p1","p2"],"preferenceTags":["cycling"]}`))
	})

	profile, err := provider.GetUserProfile(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UserID)
	assert.Equal(t, []string{"p1", "p2"}, profile.RecentInteractionIDs)
	assert.Equal(t, []string{"cycling"}, profile.PreferenceTags)
}

func TestHTTPProvider_GetPurchaseHistory(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/users/u1/orders/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"productIds":["p9"]}`))
	})

	ids, err := provider.GetPurchaseHistory(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, []string{"p9"}, ids)
}

func TestHTTPProvider_ErrorMapping(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/internal/users/missing/profile" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := provider.GetUserProfile(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = provider.GetPurchaseHistory(context.Background(), "u1")
	assert.True(t, apperrors.IsUpstreamUnavailable(err))

	_, err = provider.GetUserProfile(context.Background(), " ")
	assert.True(t, apperrors.IsValidation(err))
}
