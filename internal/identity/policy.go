package identity

import (
	"strings"

	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/enums"
)

// RolePolicy decides which role a brand new account receives. Existing
// accounts keep the role they were created with.
type RolePolicy struct {
	adminEmails map[string]struct{}
}

// NewRolePolicy builds the policy from the configured admin allow list.
func NewRolePolicy(cfg config.IdentityConfig) RolePolicy {
	emails := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			emails[email] = struct{}{}
		}
	}
	return RolePolicy{adminEmails: emails}
}

// RoleFor returns the role a new account with this email should get.
func (p RolePolicy) RoleFor(email string) enums.UserRole {
	if _, ok := p.adminEmails[strings.ToLower(strings.TrimSpace(email))]; ok {
		return enums.UserRoleAdmin
	}
	return enums.UserRoleUser
}
