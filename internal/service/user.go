package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxUsernameLength = 150
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]+$`)

// PrincipalCache caches resolved principals by user ID. GetPrincipal
// returns nil on a miss.
type PrincipalCache interface {
	GetPrincipal(ctx context.Context, userID string) (*model.Principal, error)
	SetPrincipal(ctx context.Context, p model.Principal) error
	DeletePrincipal(ctx context.Context, userID string) error
}

// AuthService registers users, issues tokens and resolves principals.
type AuthService struct {
	store  UserStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
	cache  PrincipalCache
	logger *slog.Logger
	opts   Options
}

// NewAuthService creates a new AuthService. cache may be nil.
func NewAuthService(store UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, cache PrincipalCache, logger *slog.Logger, opts Options) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		logger: logger.With("component", "service.auth"),
		opts:   opts.withDefaults(),
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Session is a user with a fresh token pair.
type Session struct {
	User   *model.User
	Tokens *auth.TokenPair
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	user, err := s.createUser(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// EnsureSuperuser promotes the account named input.Username, creating it
// first when it does not exist. It reports whether an account was created.
// The password of an existing account is left unchanged.
func (s *AuthService) EnsureSuperuser(ctx context.Context, input RegisterInput) (*model.User, bool, error) {
	user, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(input.Username))
	created := false
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.createUser(ctx, input)
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.SetSuperuser(ctx, user.ID, true); err != nil {
		return nil, false, err
	}
	user.Superuser = true

	s.logger.Info("superuser_ensured", "user_id", user.ID, "username", user.Username, "created", created)
	return user, created, nil
}

// SetSuperuser grants or revokes the superuser flag and drops the cached
// principal so the change applies to the next request.
func (s *AuthService) SetSuperuser(ctx context.Context, userID string, superuser bool) error {
	if err := s.store.SetSuperuser(ctx, userID, superuser); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return &Error{Kind: ErrNotFound, Message: "user not found"}
		}
		return fmt.Errorf("failed to update superuser flag: %w", err)
	}
	s.forgetPrincipal(ctx, userID)
	s.logger.Info("superuser_changed", "user_id", userID, "superuser", superuser)
	return nil
}

func (s *AuthService) forgetPrincipal(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrincipal(ctx, userID); err != nil {
		s.logger.Warn("principal cache delete failed", "user_id", userID, "error", err)
	}
}

func (s *AuthService) createUser(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	switch {
	case username == "":
		return nil, invalid("username", "is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return nil, invalid("username", fmt.Sprintf("must be at most %d characters", maxUsernameLength))
	case !usernamePattern.MatchString(username):
		return nil, invalid("username", "may contain only letters, digits and @.+-_")
	}
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email", "must be a valid email address")
	}
	if n := utf8.RuneCountInString(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           s.opts.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.opts.Clock.Now(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, &Error{Kind: ErrConflict, Field: "username", Message: "username is already taken"}
		case errors.Is(err, repository.ErrEmailExists):
			return nil, &Error{Kind: ErrConflict, Field: "email", Message: "email is already registered"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user_registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials. login is a username or an email address.
// Unknown accounts and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.logger.Info("user_login_failed", "reason", "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logger.Info("user_login_failed", "reason", "bad_password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		s.logger.Info("user_login_failed", "reason", "disabled", "user_id", user.ID)
		return nil, ErrAccountDisabled
	}

	return s.session(user)
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Authenticate resolves an access token to a principal.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (model.Principal, error) {
	claims, err := s.tokens.Parse(accessToken, auth.TokenAccess)
	if err != nil {
		return model.Anonymous(), ErrInvalidToken
	}

	if s.cache != nil {
		cached, err := s.cache.GetPrincipal(ctx, claims.UserID)
		if err != nil {
			s.logger.Warn("principal cache read failed", "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return model.Anonymous(), err
	}

	principal := model.PrincipalFor(user)
	if s.cache != nil {
		if err := s.cache.SetPrincipal(ctx, principal); err != nil {
			s.logger.Warn("principal cache write failed", "error", err)
		}
	}
	return principal, nil
}

// GetUser returns the account for userID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, &Error{Kind: ErrNotFound, Message: "user not found"}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsersInput defines input for listing accounts.
type ListUsersInput struct {
	Cursor string
	Limit  int
}

// ListUsersOutput defines output for listing accounts.
type ListUsersOutput struct {
	Users      []*model.User
	NextCursor string
	HasMore    bool
}

// ListUsers returns accounts newest first. Any signed-in principal may list.
func (s *AuthService) ListUsers(ctx context.Context, principal model.Principal, input ListUsersInput) (*ListUsersOutput, error) {
	if !principal.Authenticated {
		return nil, ErrUnauthenticated
	}
	if input.Limit <= 0 || input.Limit > maxLimit {
		input.Limit = defaultLimit
	}

	users, next, err := s.store.ListUsers(ctx, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, invalid("cursor", "invalid pagination cursor")
		}
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &ListUsersOutput{
		Users:      users,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// LookupUser returns one account to a signed-in principal.
func (s *AuthService) LookupUser(ctx context.Context, principal model.Principal, userID string) (*model.User, error) {
	if !principal.Authenticated {
		return nil, ErrUnauthenticated
	}
	return s.GetUser(ctx, userID)
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *AuthService) session(user *model.User) (*Session, error) {
	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &Session{User: user, Tokens: tokens}, nil
}
