package user

import (
	"context"
	"strings"

	"crm-backend/internal/apperr"
	"crm-backend/internal/logging"
)

// Service defines account management and authentication.
type Service interface {
	List(ctx context.Context) ([]SafeUser, error)
	Get(ctx context.Context, username string) (User, error)
	Add(ctx context.Context, username, password, role string) (SafeUser, error)
	Delete(ctx context.Context, username string) error
	Authenticate(ctx context.Context, username, password string) (User, error)
	Bootstrap(ctx context.Context, adminUser, adminPassword string) error
}

// DefaultService implements Service over the repository.
type DefaultService struct {
	repo Repository
	log  logging.Logger
}

func NewService(repo Repository, log logging.Logger) *DefaultService {
	return &DefaultService{repo: repo, log: log}
}

func (s *DefaultService) List(ctx context.Context) ([]SafeUser, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SafeUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Safe())
	}
	return out, nil
}

func (s *DefaultService) Get(ctx context.Context, username string) (User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(username))
	for _, u := range users {
		if strings.ToLower(u.Username) == needle {
			return u, nil
		}
	}
	return User{}, apperr.NotFound(nil).WithMessage("User not found")
}

func (s *DefaultService) Add(ctx context.Context, username, password, role string) (SafeUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return SafeUser{}, apperr.InvalidInput(nil).WithMessage("Username and password are required")
	}
	if !ValidRole(role) {
		return SafeUser{}, apperr.InvalidInput(nil).WithMessage("Invalid role")
	}

	users, err := s.repo.Load(ctx)
	if err != nil {
		return SafeUser{}, err
	}
	lower := strings.ToLower(username)
	for _, u := range users {
		if strings.ToLower(u.Username) == lower {
			return SafeUser{}, apperr.Conflict(nil).WithMessage("User already exists")
		}
	}

	salt, hash, err := HashPassword(password, "")
	if err != nil {
		return SafeUser{}, apperr.Internal(err)
	}
	u := User{Username: username, Role: role, Salt: salt, Hash: hash}
	if err := s.repo.Save(ctx, append(users, u)); err != nil {
		return SafeUser{}, err
	}
	return u.Safe(), nil
}

func (s *DefaultService) Delete(ctx context.Context, username string) error {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	needle := strings.ToLower(strings.TrimSpace(username))
	for i, u := range users {
		if strings.ToLower(u.Username) == needle {
			return s.repo.Save(ctx, append(users[:i], users[i+1:]...))
		}
	}
	return apperr.NotFound(nil).WithMessage("User not found")
}

func (s *DefaultService) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return User{}, apperr.Unauthorized(nil).WithMessage("Invalid credentials")
	}
	if !VerifyPassword(password, u.Salt, u.Hash) {
		return User{}, apperr.Unauthorized(nil).WithMessage("Invalid credentials")
	}
	return u, nil
}

// Bootstrap seeds the first admin account when the store has no users.
// Without any way to establish an identity the server cannot start.
func (s *DefaultService) Bootstrap(ctx context.Context, adminUser, adminPassword string) error {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if adminUser == "" || adminPassword == "" {
		return apperr.Internal(nil).WithMessage("No users exist and no bootstrap admin is configured")
	}
	if _, err := s.Add(ctx, adminUser, adminPassword, RoleAdmin); err != nil {
		return err
	}
	s.log.Info(ctx, "bootstrap admin created", "username", adminUser)
	return nil
}
