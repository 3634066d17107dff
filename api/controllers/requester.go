package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/api/middleware"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/types"
)

func requesterUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func requesterIsAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin)
}

// cartOwner resolves the cart identity for the request. A signed-in user
// owns a user cart; everyone else gets the anonymous session cart.
func cartOwner(r *http.Request) (types.Identity, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return types.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return types.UserIdentity(id), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return types.SessionIdentity(sessionID), nil
	}
	return types.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing")
}
