package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gadgethub/storefront-backend/api/responses"
	"github.com/gadgethub/storefront-backend/api/validators"
	"github.com/gadgethub/storefront-backend/internal/admin"
	"github.com/gadgethub/storefront-backend/internal/catalog"
	"github.com/gadgethub/storefront-backend/internal/identity"
	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/logger"
)

// AdminStats serves the back-office dashboard counters.
func AdminStats(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminListProducts lists every listing, deactivated ones included.
func AdminListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		input, err := listProductsInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.IncludeInactive = true

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type createProductRequest struct {
	Name             string          `json:"name" validate:"required,max=300"`
	Slug             string          `json:"slug" validate:"required,max=300"`
	Description      *string         `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price" validate:"required"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	ImageURL         string          `json:"imageUrl,omitempty"`
	Images           []string        `json:"images,omitempty"`
	StockCount       int             `json:"stockCount" validate:"min=0"`
	IsDigital        bool            `json:"isDigital,omitempty"`
	DownloadURL      *string         `json:"downloadUrl,omitempty"`
	LicenseKey       *string         `json:"licenseKey,omitempty"`
	IsFeatured       bool            `json:"isFeatured,omitempty"`
	IsLimitedEdition bool            `json:"isLimitedEdition,omitempty"`
}

// AdminCreateProduct inserts a new listing.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:             payload.Name,
			Slug:             payload.Slug,
			Description:      payload.Description,
			Price:            payload.Price,
			CategoryID:       payload.CategoryID,
			ImageURL:         payload.ImageURL,
			Images:           payload.Images,
			StockCount:       payload.StockCount,
			IsDigital:        payload.IsDigital,
			DownloadURL:      payload.DownloadURL,
			LicenseKey:       payload.LicenseKey,
			IsFeatured:       payload.IsFeatured,
			IsLimitedEdition: payload.IsLimitedEdition,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name             *string          `json:"name,omitempty" validate:"omitempty,max=300"`
	Slug             *string          `json:"slug,omitempty" validate:"omitempty,max=300"`
	Description      *string          `json:"description,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	CategoryID       *uuid.UUID       `json:"categoryId,omitempty"`
	ImageURL         *string          `json:"imageUrl,omitempty"`
	Images           *[]string        `json:"images,omitempty"`
	StockCount       *int             `json:"stockCount,omitempty" validate:"omitempty,min=0"`
	IsDigital        *bool            `json:"isDigital,omitempty"`
	DownloadURL      *string          `json:"downloadUrl,omitempty"`
	LicenseKey       *string          `json:"licenseKey,omitempty"`
	IsFeatured       *bool            `json:"isFeatured,omitempty"`
	IsLimitedEdition *bool            `json:"isLimitedEdition,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
}

// AdminUpdateProduct applies a partial update to a listing.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, catalog.UpdateProductInput{
			Name:             payload.Name,
			Slug:             payload.Slug,
			Description:      payload.Description,
			Price:            payload.Price,
			CategoryID:       payload.CategoryID,
			ImageURL:         payload.ImageURL,
			Images:           payload.Images,
			StockCount:       payload.StockCount,
			IsDigital:        payload.IsDigital,
			DownloadURL:      payload.DownloadURL,
			LicenseKey:       payload.LicenseKey,
			IsFeatured:       payload.IsFeatured,
			IsLimitedEdition: payload.IsLimitedEdition,
			IsActive:         payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct deactivates a listing.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Slug        string  `json:"slug" validate:"required,max=200"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// AdminCreateCategory inserts a new category.
func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), catalog.CreateCategoryInput{
			Name:        payload.Name,
			Slug:        payload.Slug,
			Description: payload.Description,
			ImageURL:    payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// AdminListOrders lists every order with an optional status filter.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		page, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.ListOrdersInput{Pagination: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		result, err := svc.ListAllOrders(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type updateOrderStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AdminUpdateOrderStatus applies a fulfillment transition to an order.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID: orderID,
			Status:  status,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminListUsers lists accounts for the back office.
func AdminListUsers(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		page, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUsers(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
