package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidLogin     = errors.New("login must be 3-20 letters, digits or _")
	ErrBadCredentials   = errors.New("invalid login or password")
	ErrPasswordRequired = errors.New("password required")
	ErrRateLimited      = errors.New("too many claims, retry later")
)

var loginRe = regexp.MustCompile(`^[\p{L}\p{N}_]{3,20}$`)

// ClaimRequest тело POST /session/claim
type ClaimRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password"`
}

// ClaimResult ответ claim: токен для /ws и назначенный id
type ClaimResult struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"playerId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ClaimService выдаёт сессионные токены.
// Первый claim логина создаёт игрока; каждый следующий перевыпускает jti,
// поэтому ранее выданный токен перестаёт приниматься при загрузке игрока.
type ClaimService struct {
	repo          storage.PlayerRepo
	tokens        *TokenService
	allowPassword bool

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	perMin   float64
	burst    int

	log *logging.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClaimService создаёт сервис. perMin <= 0 отключает ограничение частоты.
func NewClaimService(repo storage.PlayerRepo, tokens *TokenService, perMin float64, burst int, allowPassword bool) *ClaimService {
	if burst <= 0 {
		burst = 1
	}
	return &ClaimService{
		repo:          repo,
		tokens:        tokens,
		allowPassword: allowPassword,
		limiters:      make(map[string]*clientLimiter),
		perMin:        perMin,
		burst:         burst,
		log:           logging.GetComponentLogger("auth"),
	}
}

// Tokens сервис токенов для проверки при подключении
func (s *ClaimService) Tokens() *TokenService { return s.tokens }

// allow ограничивает частоту claim с одного адреса
func (s *ClaimService) allow(client string) bool {
	if s.perMin <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cl, ok := s.limiters[client]
	if !ok {
		if len(s.limiters) > 4096 {
			for k, v := range s.limiters {
				if now.Sub(v.lastSeen) > time.Minute {
					delete(s.limiters, k)
				}
			}
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.perMin/60), s.burst)}
		s.limiters[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

// Claim выдаёт токен для логина. client адрес клиента для rate limit.
func (s *ClaimService) Claim(ctx context.Context, client string, req ClaimRequest) (*ClaimResult, error) {
	if !s.allow(client) {
		return nil, ErrRateLimited
	}
	if !loginRe.MatchString(req.Login) {
		return nil, ErrInvalidLogin
	}
	login := storage.NormalizeLogin(req.Login)
	password := req.Password
	if !s.allowPassword {
		password = ""
	}

	rec, err := s.repo.FindByLogin(ctx, login)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s.register(ctx, login, req.Login, password)
	case err != nil:
		return nil, fmt.Errorf("find player: %w", err)
	}

	if rec.PasswordHash != "" {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if !CheckPassword(rec.PasswordHash, password) {
			s.log.Warn("Неверный пароль для %s с адреса %s", login, client)
			return nil, ErrBadCredentials
		}
	}

	hash := rec.PasswordHash
	if hash == "" && password != "" {
		// первый пароль закрепляет логин
		if hash, err = HashPassword(password); err != nil {
			return nil, err
		}
	}
	jti := NewTokenID()
	if err := s.repo.UpdateCredentials(ctx, rec.ID, jti, hash); err != nil {
		return nil, fmt.Errorf("update credentials: %w", err)
	}
	return s.issue(rec.ID, rec.Username, jti)
}

func (s *ClaimService) register(ctx context.Context, login, display, password string) (*ClaimResult, error) {
	hash := ""
	if password != "" {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return nil, err
		}
	}
	rec := &storage.PlayerRecord{
		ID:           uuid.NewString(),
		Login:        login,
		Token:        NewTokenID(),
		PasswordHash: hash,
		Username:     display,
		Level:        1,
		UpdatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			// гонка двух первых claim одного логина
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("create player: %w", err)
	}
	s.log.Info("Зарегистрирован игрок %s (%s)", rec.ID, login)
	return s.issue(rec.ID, rec.Username, rec.Token)
}

func (s *ClaimService) issue(playerID, username, jti string) (*ClaimResult, error) {
	token, expires, err := s.tokens.Issue(playerID, username, jti)
	if err != nil {
		return nil, err
	}
	return &ClaimResult{Token: token, PlayerID: playerID, Username: username, ExpiresAt: expires}, nil
}
