package model

import "time"

// Roles stored in users.role and carried in the access token.
const (
	RoleUser     = "USER"
	RoleOperator = "OPERATOR"
)

// User represents a row in the `users` table.  Operators are bound to the
// warnet they run through WarnetID; regular users may hold a membership at
// one warnet (MemberWarnetID) which unlocks the member hourly rate there.
//
// Fields:
//
//	ID             – primary key identifier of the user.
//	Name           – display name.
//	Email          – unique email address.
//	PasswordHash   – bcrypt hashed password.
//	Role           – USER or OPERATOR.
//	WarnetID       – operator's assigned warnet (nil for users).
//	MemberWarnetID – user's home warnet for member pricing (nullable).
//	IsActive       – whether the account is active.
type User struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	WarnetID       *uint64   `json:"warnet_id,omitempty"`
	MemberWarnetID *uint64   `json:"member_warnet_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsMemberOf reports whether the user holds a membership at the warnet.
func (u User) IsMemberOf(warnetID uint64) bool {
	return u.MemberWarnetID != nil && *u.MemberWarnetID == warnetID
}

// Identity is the authenticated caller of a request.  The JWT middleware
// builds it from the access token and handlers pass it by value into every
// service call that needs to authorize.
type Identity struct {
	UserID   uint64
	Role     string
	WarnetID *uint64
}

func (i Identity) IsOperator() bool { return i.Role == RoleOperator }

// OperatesWarnet reports whether the identity is the operator of warnetID.
func (i Identity) OperatesWarnet(warnetID uint64) bool {
	return i.IsOperator() && i.WarnetID != nil && *i.WarnetID == warnetID
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
