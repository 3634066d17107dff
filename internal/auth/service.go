package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/internal/identity"
	pkgauth "github.com/gadgethub/storefront-backend/pkg/auth"
	"github.com/gadgethub/storefront-backend/pkg/auth/session"
	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/security"
)

const minPasswordLength = 8

// Service exposes email/password authentication with refresh token
// rotation.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type cartMerger interface {
	MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type accountResolver interface {
	Resolve(ctx context.Context, input identity.ResolveInput) (*identity.UserDTO, error)
}

type service struct {
	users    *identity.Repository
	accounts accountResolver
	policy   identity.RolePolicy
	sessions sessionManager
	carts    cartMerger
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
}

// NewService constructs an auth service instance.
func NewService(users *identity.Repository, accounts accountResolver, policy identity.RolePolicy, sessions sessionManager, carts cartMerger, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("identity repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("identity service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart merger required")
	}
	return &service{
		users:    users,
		accounts: accounts,
		policy:   policy,
		sessions: sessions,
		carts:    carts,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
	}, nil
}

// Register creates an email/password account and signs it in.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        &email,
		PasswordHash: &hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         s.policy.RoleFor(email),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	return s.signIn(ctx, user, input.SessionID)
}

// Login verifies credentials, folds the anonymous cart into the account,
// and issues a token pair.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}
	if user.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	ok, err := security.VerifyPassword(input.Password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.signIn(ctx, user, input.SessionID)
}

// Refresh rotates the refresh token and mints a fresh access token. The
// expired access token identifies the session being rotated.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	accessToken, err := s.mintToken(user.ID, email, user.Role, newAccessID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         identity.ToUserDTO(*user),
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout revokes the session behind the presented access token. Expired
// tokens still log out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// signIn runs the shared sign-in tail: merge the anonymous cart, record
// the sign-in event through the identity service, and issue tokens.
func (s *service) signIn(ctx context.Context, user *models.User, cartSessionID string) (*AuthResult, error) {
	if cartSessionID != "" {
		if err := s.carts.MergeOnLogin(ctx, cartSessionID, user.ID); err != nil {
			return nil, err
		}
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	account, err := s.accounts.Resolve(ctx, identity.ResolveInput{
		SubjectID: &user.ID,
		Email:     email,
	})
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	accessToken, err := s.mintToken(account.ID, account.Email, account.Role, accessID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         *account,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *service) mintToken(userID uuid.UUID, email string, role enums.UserRole, accessID string) (string, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Email:  email,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return token, nil
}
