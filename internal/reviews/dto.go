package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// ReviewDTO is the API shape of a product review.
type ReviewDTO struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"productId"`
	UserID             uuid.UUID `json:"userId"`
	AuthorName         string    `json:"authorName,omitempty"`
	Rating             int       `json:"rating"`
	Title              *string   `json:"title,omitempty"`
	Comment            *string   `json:"comment,omitempty"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	HelpfulCount       int       `json:"helpfulCount"`
	CreatedAt          time.Time `json:"createdAt"`
}

// SubmitReviewInput carries a new review for a product.
type SubmitReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Title     *string
	Comment   *string
}

// ListReviewsInput selects one page of a product's reviews.
type ListReviewsInput struct {
	ProductID  uuid.UUID
	Pagination pagination.Params
}

// ReviewListResult is one page of reviews.
type ReviewListResult struct {
	Reviews    []ReviewDTO `json:"reviews"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func toReviewDTO(review models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:                 review.ID,
		ProductID:          review.ProductID,
		UserID:             review.UserID,
		Rating:             review.Rating,
		Title:              review.Title,
		Comment:            review.Comment,
		IsVerifiedPurchase: review.IsVerifiedPurchase,
		HelpfulCount:       review.HelpfulCount,
		CreatedAt:          review.CreatedAt,
	}
	if review.User != nil {
		dto.AuthorName = displayName(review.User)
	}
	return dto
}

func displayName(user *models.User) string {
	first := ""
	if user.FirstName != nil {
		first = *user.FirstName
	}
	last := ""
	if user.LastName != nil {
		last = *user.LastName
	}
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return ""
	}
}
