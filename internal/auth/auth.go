// auth проверяет access-токены акторов (клиентов и сотрудников мерчантов),
// выпущенные auth-сервисом платформы, и переносит id актора через context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/go-loyalty-redemption/internal/config"
)

var (
	// ErrInvalidToken — токен не разбирается, подпись/issuer/audience не сходятся.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrTokenExpired — срок действия access-токена истёк.
	ErrTokenExpired = errors.New("access token expired")
)

const leeway = 5 * time.Second

// accessClaims — формат claims auth-сервиса: uid дублирует sub.
type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Verifier проверяет HS256 access-токены.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier создаёт Verifier по секции auth конфигурации.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Verify валидирует токен и возвращает id актора.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	const op = "auth.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}

			return v.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	actor := claims.UserID
	if actor == "" {
		actor = claims.Subject
	}
	if actor == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return actor, nil
}

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

type actorKey struct{}

// WithActor кладёт id аутентифицированного актора в контекст.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom достаёт id актора; пустая строка — запрос не аутентифицирован.
func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
