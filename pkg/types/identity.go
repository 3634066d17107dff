package types

import "github.com/google/uuid"

// Identity names the owner of a cart: a signed-in user or an anonymous
// browser session. Exactly one side is set.
type Identity struct {
	UserID    *uuid.UUID
	SessionID *string
}

// UserIdentity builds an identity for a signed-in user.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

// SessionIdentity builds an identity for an anonymous session.
func SessionIdentity(sessionID string) Identity {
	return Identity{SessionID: &sessionID}
}

// IsUser reports whether the identity belongs to a signed-in user.
func (i Identity) IsUser() bool {
	return i.UserID != nil
}

// IsValid reports whether exactly one owner side is populated.
func (i Identity) IsValid() bool {
	if i.UserID != nil {
		return i.SessionID == nil
	}
	return i.SessionID != nil && *i.SessionID != ""
}
