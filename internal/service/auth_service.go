package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/auth"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/notify"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

const welcomeMailTimeout = 30 * time.Second

// RegisterInput carries a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	StoreName string
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	notifier notify.Notifier
	mailWG   sync.WaitGroup
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, notifier notify.Notifier) *AuthService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &AuthService{users: users, tokens: tokens, notifier: notifier}
}

// Register creates the account and sends the welcome e-mail in the background.
// A mail failure is logged and never fails registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		StoreName:    strings.TrimSpace(in.StoreName),
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	logger.Log.Info().Int64("user_id", id).Str("username", user.Username).Msg("user registered")

	s.mailWG.Add(1)
	go func(u domain.User) {
		defer s.mailWG.Done()
		mailCtx, cancel := context.WithTimeout(context.Background(), welcomeMailTimeout)
		defer cancel()
		if err := s.notifier.SendWelcome(mailCtx, u); err != nil {
			logger.Log.Warn().Err(err).Int64("user_id", u.ID).Msg("welcome e-mail failed")
		}
	}(*user)

	return user, nil
}

// Login verifies credentials. Unknown users and wrong passwords both return
// domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	token, expiry, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, TokenType: "Bearer", ExpiresAt: expiry, User: user}, nil
}

// Authenticate resolves a bearer token to its claims.
func (s *AuthService) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Parse(token)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// WaitForMail blocks until queued welcome e-mails finish.
func (s *AuthService) WaitForMail() {
	s.mailWG.Wait()
}
