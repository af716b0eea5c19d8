package utils

import (
	"errors"
	"natours/internal/apperr"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService подписывает и проверяет сессионные JWT (HS256).
// В токене только id пользователя и время выдачи, роль берётся из БД при каждой проверке.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock — для тестов.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Sign создаёт токен: sub = subjectID, iat = сейчас, exp = iat + ttl.
func (s *TokenService) Sign(subjectID string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify проверяет подпись и срок действия, возвращает subject и iat.
// Подпись сравнивается через hmac.Equal внутри jwt. Наружу только два класса ошибок.
func (s *TokenService) Verify(tokenString string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", time.Time{}, apperr.ErrTokenExpired
		}
		return "", time.Time{}, apperr.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return "", time.Time{}, apperr.ErrInvalidToken
	}

	return claims.Subject, claims.IssuedAt.Time, nil
}
