package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)

type AuthService struct {
	UoW        repo.UnitOfWork
	JWT        *helpers.JWTManager
	Redis      *redis.Client
	Logger     *logrus.Logger
	SessionTTL time.Duration

	// Optional welcome email on registration.
	Publisher  Publisher
	EmailQueue string
	Branding   templates.Branding
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func sessionKey(accountID string) string {
	return helpers.RedisKey("session", accountID)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewAuthService(uow repo.UnitOfWork, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	ttl := 24 * time.Hour
	if jwt != nil && jwt.RefreshTTL > 0 {
		ttl = jwt.RefreshTTL
	}
	return &AuthService{UoW: uow, JWT: jwt, Redis: rdb, Logger: logger, SessionTTL: ttl}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a reader account and its reader profile together.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.Account, *entity.Reader, error) {
	email, err := checkEmail(&in.Email)
	if err != nil {
		return nil, nil, err
	}
	if err := helpers.CheckPasswordLength(in.Password); err != nil {
		return nil, nil, invalid("%s", err)
	}
	reader, err := buildReader(ReaderInput{FirstName: in.FirstName, LastName: in.LastName, Email: email})
	if err != nil {
		return nil, nil, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	acc := &entity.Account{Email: *email, PasswordHash: hash, Role: entity.RoleReader, IsActive: true}
	err = s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		if _, err := st.Accounts.GetByEmail(ctx, acc.Email); err == nil {
			return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if err := st.Accounts.Create(ctx, acc); err != nil {
			return err
		}
		reader.AccountID = &acc.ID
		return st.Readers.Create(ctx, reader)
	})
	if err != nil {
		return nil, nil, err
	}

	s.sendWelcome(ctx, reader)
	return acc, reader, nil
}

// CreateAccount creates an account without a reader profile, e.g. an admin.
func (s *AuthService) CreateAccount(ctx context.Context, email, password string, role entity.Role) (*entity.Account, error) {
	e, err := checkEmail(&email)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	if err := helpers.CheckPasswordLength(password); err != nil {
		return nil, invalid("%s", err)
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	acc := &entity.Account{Email: *e, PasswordHash: hash, Role: role, IsActive: true}
	err = s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		return st.Accounts.Create(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Authenticate validates email/password and returns the account without issuing tokens.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.Account, error) {
	var acc *entity.Account
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		acc, err = st.Accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.PasswordMatches(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !acc.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", apperr.ErrUnauthorized)
	}
	return acc, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AuthService) IssueTokens(ctx context.Context, acc *entity.Account) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.sign(acc, sid)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.storeSession(ctx, acc.ID, map[string]any{
		"account_id": acc.ID,
		"email":      acc.Email,
		"role":       string(acc.Role),
		"sid":        sid,
		"created_at": nowRFC3339(),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// storeSession writes the session hash; tokens are returned only after it
// is stored.
func (s *AuthService) storeSession(ctx context.Context, accountID string, fields map[string]any) error {
	if s.Redis == nil {
		return nil
	}
	key := sessionKey(accountID)
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log().WithError(err).WithField("account_id", accountID).Error("store session failed")
		return fmt.Errorf("%w: session store: %v", apperr.ErrUnavailable, err)
	}
	return nil
}

func (s *AuthService) sign(acc *entity.Account, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(acc.ID, string(acc.Role), sid)
	if err != nil {
		s.log().WithError(err).WithField("account_id", acc.ID).Error("generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(acc.ID, string(acc.Role), sid)
	if err != nil {
		s.log().WithError(err).WithField("account_id", acc.ID).Error("generate refresh token failed")
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.Account, TokenPair, error) {
	acc, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, acc)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.log().WithField("account_id", acc.ID).Info("login")
	return acc, pair, nil
}

// Refresh validates the refresh token against the current session and
// rotates the session id, invalidating every earlier token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, *entity.Account, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	acc, err := s.GetAccount(ctx, claims.AccountID)
	if err != nil || !acc.IsActive {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if s.Redis != nil {
		current, err := s.sessionID(ctx, acc.ID)
		if err != nil {
			return TokenPair{}, nil, err
		}
		if current != claims.SessionID {
			return TokenPair{}, nil, ErrInvalidCredentials
		}
	}

	sid := uuid.NewString()
	pair, err := s.sign(acc, sid)
	if err != nil {
		return TokenPair{}, nil, err
	}
	err = s.storeSession(ctx, acc.ID, map[string]any{
		"sid":        sid,
		"role":       string(acc.Role),
		"updated_at": nowRFC3339(),
	})
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, acc, nil
}

// SessionActive reports whether sid is the account's current session.
// Without Redis every signed token is accepted.
func (s *AuthService) SessionActive(ctx context.Context, accountID, sid string) bool {
	if s.Redis == nil {
		return true
	}
	current, err := s.sessionID(ctx, accountID)
	return err == nil && current != "" && current == sid
}

// sessionID returns the account's current session id, "" when there is none.
func (s *AuthService) sessionID(ctx context.Context, accountID string) (string, error) {
	sid, err := s.Redis.HGet(ctx, sessionKey(accountID), "sid").Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		s.log().WithError(err).WithField("account_id", accountID).Warn("read session failed")
		return "", fmt.Errorf("%w: session store: %v", apperr.ErrUnavailable, err)
	}
	return sid, nil
}

func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	if s.Redis == nil {
		return nil
	}
	if err := s.Redis.Del(ctx, sessionKey(accountID)).Err(); err != nil {
		s.log().WithError(err).WithField("account_id", accountID).Warn("delete session failed")
		return err
	}
	return nil
}

func (s *AuthService) GetAccount(ctx context.Context, id string) (*entity.Account, error) {
	var acc *entity.Account
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		acc, err = st.Accounts.GetByID(ctx, id)
		return err
	})
	return acc, err
}

func (s *AuthService) sendWelcome(ctx context.Context, r *entity.Reader) {
	if s.Publisher == nil || s.EmailQueue == "" || r.Email == nil {
		return
	}
	job := mailer.EmailJob{
		To:       *r.Email,
		Template: templates.Welcome,
		Data:     templates.NewWelcomeData(s.Branding, r.FullName(), *r.Email, templates.WithTime(time.Now())),
	}
	if err := s.Publisher.PublishJSONTo(ctx, s.EmailQueue, job); err != nil {
		s.log().WithError(err).WithField("reader_id", r.ID).Warn("enqueue welcome email failed")
	}
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
