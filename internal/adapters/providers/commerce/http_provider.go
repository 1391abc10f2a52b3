package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// HTTPProvider talks to the commerce platform's internal API for user
// profiles and purchase history. Both signals are optional enrichments, so
// callers are expected to tolerate UpstreamUnavailableError.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.IdentityProvider = (*HTTPProvider)(nil)
var _ providers.OrderHistoryProvider = (*HTTPProvider)(nil)

type profileResponse struct {
	UserID               string   `json:"userId"`
	RecentInteractionIDs []string `json:"recentInteractionIds"`
	PreferenceTags       []string `json:"preferenceTags"`
}

type orderHistoryResponse struct {
	ProductIDs []string `json:"productIds"`
}

// NewHTTPProvider creates a commerce platform client.
func NewHTTPProvider(cfg *config.CommerceConfig) *HTTPProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetUserProfile returns the discovery slice of the user's profile.
func (p *HTTPProvider) GetUserProfile(ctx context.Context, userID string) (*providers.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	endpoint := fmt.Sprintf("%s/internal/users/%s/profile", p.baseURL, url.PathEscape(userID))
	out := &profileResponse{}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, out); err != nil {
		return nil, err
	}

	return &providers.UserProfile{
		UserID:               out.UserID,
		RecentInteractionIDs: out.RecentInteractionIDs,
		PreferenceTags:       out.PreferenceTags,
	}, nil
}

// GetPurchaseHistory returns the product ids the user has purchased.
func (p *HTTPProvider) GetPurchaseHistory(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	endpoint := fmt.Sprintf("%s/internal/users/%s/orders/products", p.baseURL, url.PathEscape(userID))
	out := &orderHistoryResponse{}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, out); err != nil {
		return nil, err
	}
	return out.ProductIDs, nil
}

func (p *HTTPProvider) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apperrors.NewInternalError("failed to build commerce request", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewUpstreamUnavailableError("commerce platform unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError("commerce resource not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewUpstreamUnavailableError(
			fmt.Sprintf("commerce platform returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewInternalError("failed to decode commerce response", err)
	}

	return nil
}
