package domain

import "time"

// Notification scopes.
const (
	ScopeSingle = "single"
	ScopeGlobal = "global"
)

// Notification kinds emitted by the order lifecycle and other subsystems.
const (
	KindOrder  = "order"
	KindSystem = "system"
	KindPromo  = "promo"
)

// Notification is an ephemeral event record. UserID is nil for global
// notifications visible to every user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Scope     string    `json:"scope"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
