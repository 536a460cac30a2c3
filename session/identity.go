package session

import "time"

// RoleType represents the staff role attached to an identity.
type RoleType string

const (
	RoleOwner   RoleType = "owner"
	RoleManager RoleType = "manager"
	RoleStaff   RoleType = "staff"
)

// Identity is the authenticated-user record returned by the remote service.
// TenantID is the supermarket the user manages; it scopes every category
// and item the catalog stores may hold.
type Identity struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"`
	TenantID        string    `json:"supermarketId"`
	Role            RoleType  `json:"role"`
	ProfileImageRef string    `json:"profileImage,omitempty"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProfileUpdate is a partial identity mutation. Nil fields are left
// untouched by the server.
type ProfileUpdate struct {
	DisplayName *string
	Email       *string
}
