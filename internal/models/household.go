package models

import (
	"slices"
	"time"
)

// Household is the sharing boundary; every item and grocery entry belongs to
// exactly one household. MemberIDs is persisted locally as a JSON array.
type Household struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsSynced  bool      `json:"is_synced"`
	IsDeleted bool      `json:"is_deleted"`
}

// HasMember reports whether the given user id is a member.
func (h *Household) HasMember(userID string) bool {
	return slices.Contains(h.MemberIDs, userID)
}
