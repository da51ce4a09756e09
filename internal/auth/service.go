package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/store"
)

// Session is what a successful login returns.
type Session struct {
	User  *store.User
	Token string
}

// Service provides account operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	log       *zerolog.Logger
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		log:       logger,
	}
}

// Register validates the form, hashes the password and creates the user.
// Validation failures are reported per field.
func (s *Service) Register(ctx context.Context, username, email, password, confirmPassword string) (*store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	fields := map[string]string{}
	if username == "" {
		fields["username"] = "Username must not be empty"
	}
	if email == "" {
		fields["email"] = "Email must not be empty"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "Email must be a valid email address"
	}
	if strings.TrimSpace(password) == "" {
		fields["password"] = "Password must not be empty"
	} else if len(password) > maxPasswordBytes {
		fields["password"] = "Password must be at most 72 bytes"
	}
	if strings.TrimSpace(confirmPassword) == "" {
		fields["confirmPassword"] = "ConfirmPassword must not be empty"
	}
	if password != confirmPassword {
		fields["confirmPassword"] = "Password must match"
	}
	if len(fields) > 0 {
		return nil, core.InvalidArgument("Bad input", fields)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, core.Internal(err)
	}

	user, err := s.store.CreateUser(ctx, username, email, hashed)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			field := conflict.Field
			if field == "" {
				field = "username"
			}
			return nil, core.Conflict("Bad input", map[string]string{field: field + " is already taken"})
		}
		return nil, core.Internal(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user", user.Username).Msg("user registered")
	return user, nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "Username must not be empty"
	}
	if strings.TrimSpace(password) == "" {
		fields["password"] = "Password must not be empty"
	}
	if len(fields) > 0 {
		return nil, core.InvalidArgument("Bad input", fields)
	}

	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.InvalidArgument("user not found", map[string]string{"username": "Username does not exist"})
		}
		return nil, core.Internal(fmt.Errorf("get user: %w", err))
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, core.InvalidArgument("password is incorrect", map[string]string{"password": "Password is incorrect"})
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return nil, core.Internal(fmt.Errorf("generate token: %w", err))
	}

	return &Session{User: user, Token: token}, nil
}

// Me returns the stored record of the caller.
func (s *Service) Me(ctx context.Context, id Identity) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, id.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.Unauthenticated("Unauthenticated")
		}
		return nil, core.Internal(fmt.Errorf("get user: %w", err))
	}
	return user, nil
}

// UpdateAvatar sets the caller's image URL. An empty url clears it.
func (s *Service) UpdateAvatar(ctx context.Context, id Identity, imageURL string) (*store.User, error) {
	user, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}

	var url *string
	if trimmed := strings.TrimSpace(imageURL); trimmed != "" {
		if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
			return nil, core.InvalidArgument("Bad input", map[string]string{"imageUrl": "Image URL must be http or https"})
		}
		url = &trimmed
	}

	updated, err := s.store.UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		return nil, core.Internal(fmt.Errorf("update avatar: %w", err))
	}
	return updated, nil
}
