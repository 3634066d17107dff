package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// Service converts external sign-in events into local accounts and
// serves account lookups for the back office.
type Service interface {
	Resolve(ctx context.Context, input ResolveInput) (*UserDTO, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListUsers(ctx context.Context, page pagination.Params) (*UserListResult, error)
}

type service struct {
	repo   *Repository
	policy RolePolicy
}

// NewService constructs an identity service instance.
func NewService(repo *Repository, policy RolePolicy) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	return &service{repo: repo, policy: policy}, nil
}

// Resolve upserts an account for a verified external sign-in. The call
// runs on every sign-in event and must stay idempotent, so new accounts
// go through a single atomic insert-or-refresh keyed on the email
// rather than a lookup followed by a write.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	now := time.Now().UTC()

	if input.SubjectID != nil {
		user, err := s.repo.FindByID(ctx, *input.SubjectID)
		switch {
		case err == nil:
			return s.refreshExisting(ctx, user, input, now)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// subject unknown locally, fall through to the email upsert
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
		}
	}

	user := &models.User{
		Email:           &email,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		ProfileImageURL: input.ProfileImageURL,
		Role:            s.policy.RoleFor(email),
		IsActive:        true,
		LastLoginAt:     &now,
	}
	if input.SubjectID != nil {
		user.ID = *input.SubjectID
	}

	refresh := []string{"last_login_at", "updated_at"}
	if input.FirstName != nil {
		refresh = append(refresh, "first_name")
	}
	if input.LastName != nil {
		refresh = append(refresh, "last_name")
	}
	if input.ProfileImageURL != nil {
		refresh = append(refresh, "profile_image_url")
	}

	if err := s.repo.UpsertByEmail(ctx, user, refresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert account")
	}

	// the upsert keeps the existing row's id on conflict, re-read for
	// the canonical record
	stored, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !stored.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}
	dto := ToUserDTO(*stored)
	return &dto, nil
}

func (s *service) refreshExisting(ctx context.Context, user *models.User, input ResolveInput, now time.Time) (*UserDTO, error) {
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	updates := map[string]any{"last_login_at": now}
	if user.Email == nil || *user.Email != email {
		updates["email"] = email
	}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.ProfileImageURL != nil {
		updates["profile_image_url"] = *input.ProfileImageURL
	}

	if err := s.repo.UpdateProfile(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh account")
	}
	stored, err := s.repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	dto := ToUserDTO(*stored)
	return &dto, nil
}

// GetUser loads a single account.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	dto := ToUserDTO(*user)
	return &dto, nil
}

// ListUsers returns one page of accounts for the back office.
func (s *service) ListUsers(ctx context.Context, page pagination.Params) (*UserListResult, error) {
	rows, nextCursor, err := s.repo.ListUsers(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	result := &UserListResult{
		Users:      make([]UserDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for _, row := range rows {
		result.Users = append(result.Users, ToUserDTO(row))
	}
	return result, nil
}
