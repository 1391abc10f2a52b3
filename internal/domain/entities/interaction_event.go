package entities

import (
	"time"
)

// SubjectType identifies what an interaction event refers to.
type SubjectType string

const (
	SubjectSearchResult   SubjectType = "SEARCH_RESULT"
	SubjectRecommendation SubjectType = "RECOMMENDATION"
	SubjectProduct        SubjectType = "PRODUCT"
)

// EventType identifies the kind of behavioral interaction.
type EventType string

const (
	EventImpression EventType = "IMPRESSION"
	EventClick      EventType = "CLICK"
	EventAddToCart  EventType = "ADD_TO_CART"
	EventPurchase   EventType = "PURCHASE"
	EventDismiss    EventType = "DISMISS"
)

// Metadata keys written by the core. Category tagging is what lets the trend
// detector aggregate events by topic without a catalog join.
const (
	MetaCategory = "category"
	MetaQueryID  = "query_id"
	MetaBatchID  = "batch_id"
)

// InteractionEvent is one append-only behavioral record. Events reference
// their subject by id only; there are no back-pointers and no in-place
// mutation. The sequence number is assigned by the store and is monotonically
// increasing, giving per-session causal order.
type InteractionEvent struct {
	Seq         int64             `json:"seq" db:"seq"`
	ID          string            `json:"id" db:"id"`
	SessionID   string            `json:"session_id" db:"session_id"`
	SubjectType SubjectType       `json:"subject_type" db:"subject_type"`
	SubjectID   string            `json:"subject_id" db:"subject_id"`
	EventType   EventType         `json:"event_type" db:"event_type"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
