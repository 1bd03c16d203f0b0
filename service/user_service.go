package service

import (
	"context"
	"errors"
	"time"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/repository"
	"github.com/tieubaoca/research-assistant/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// bcrypt only reads the first 72 bytes of a password.
const maxPasswordBytes = 72

// UserService is the auth gate in front of the credential store.
type UserService interface {
	// Register reports false when the username or email is already taken.
	Register(ctx context.Context, username, email, password string) (bool, error)
	// Login reports whether password matches the stored hash for username.
	Login(ctx context.Context, username, password string) (bool, error)
	// Authenticate is Login returning a fresh session.
	Authenticate(ctx context.Context, username, password string) (*types.Session, error)
}

type userService struct {
	repo       repository.UserRepo
	log        logging.Logger
	sessionTTL time.Duration
	cost       int
	now        func() time.Time
}

func NewUserService(repo repository.UserRepo, log logging.Logger, sessionTTL time.Duration) UserService {
	return &userService{
		repo:       repo,
		log:        log,
		sessionTTL: sessionTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordKey(password), s.cost)
	if err != nil {
		return false, err
	}

	user := &types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			s.log.Info(ctx, "registration rejected, user exists", "username", username)
			return false, nil
		}
		return false, err
	}

	s.log.Info(ctx, "user registered", "username", username, "id", user.ID)
	return true, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (bool, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*types.Session, error) {
	ok, err := s.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Info(ctx, "login failed", "username", username)
		return nil, ErrInvalidCredentials
	}
	s.log.Info(ctx, "login succeeded", "username", username)
	return types.NewSession(username, s.now(), s.sessionTTL), nil
}

// passwordKey is the part of password bcrypt hashes. Longer passwords are cut
// at 72 bytes instead of being rejected, in Register and Login alike.
func passwordKey(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
