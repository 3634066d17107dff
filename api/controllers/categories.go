package controllers

import (
	"net/http"

	"github.com/gadgethub/storefront-backend/api/responses"
	"github.com/gadgethub/storefront-backend/api/validators"
	"github.com/gadgethub/storefront-backend/internal/catalog"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/logger"
)

// ListCategories serves every active storefront category.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// GetCategoryBySlug resolves a single category by its slug.
func GetCategoryBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug, err := validators.ParseSlugParam(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.GetCategoryBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}
