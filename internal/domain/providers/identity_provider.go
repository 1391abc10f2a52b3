package providers

import (
	"context"
)

// UserProfile is the slice of user identity the discovery core consumes.
type UserProfile struct {
	UserID               string
	RecentInteractionIDs []string
	PreferenceTags       []string
}

// IdentityProvider is the optional interface to the external identity
// service. Anonymous contexts never call it.
type IdentityProvider interface {
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// OrderHistoryProvider exposes purchase history from the external order
// service, used for purchase exclusion and cross-sell/collaborative signal.
type OrderHistoryProvider interface {
	GetPurchaseHistory(ctx context.Context, userID string) ([]string, error)
}
