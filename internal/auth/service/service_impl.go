package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	"github.com/smallbiznis/meterbill/internal/config"
	"go.uber.org/zap"
)

type claims struct {
	Email   string                   `json:"email"`
	Tenants []authdomain.TenantRoles `json:"tenants"`
	jwt.RegisteredClaims
}

type Service struct {
	log    *zap.Logger
	secret []byte
	issuer string
	now    func() time.Time
}

func NewService(cfg config.Config, log *zap.Logger) (authdomain.Service, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	return &Service{
		log:    log.Named("auth.service"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.AuthJWTIssuer),
		now:    time.Now,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (authdomain.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return authdomain.Actor{}, authdomain.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authdomain.Actor{}, authdomain.ErrTokenExpired
		}
		s.log.Debug("token rejected", zap.Error(err))
		return authdomain.Actor{}, authdomain.ErrInvalidToken
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return authdomain.Actor{}, authdomain.ErrInvalidToken
	}

	return authdomain.Actor{
		UserID:  subject,
		Email:   parsed.Email,
		Tenants: parsed.Tenants,
	}, nil
}

// IssueToken signs a token for actor. Used by seeding and tests; production
// tokens come from the identity provider.
func (s *Service) IssueToken(actor authdomain.Actor, ttl time.Duration) (string, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return "", authdomain.ErrInvalidToken
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:   actor.Email,
		Tenants: actor.Tenants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}
