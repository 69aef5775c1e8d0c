package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/djonanko/payin-service/internal/adapter/repository/repo_interfaces"
	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/logger"
)

const authHeader = "authenticationtoken"

type contextKey string

const accountContextKey contextKey = "authenticatedAccount"

// JWTAuth validates the authenticationtoken header, resolves the numero
// claim against the administration service and stores the account on the
// request context.
func JWTAuth(secret string, ledger repo_interfaces.LedgerClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error("jwt auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			raw := r.Header.Get(authHeader)
			if raw == "" {
				logger.Info("jwt auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "missing",
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Info("jwt auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid",
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			phoneNumber, _ := claims["numero"].(string)
			if phoneNumber == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := ledger.GetUser(r.Context(), phoneNumber)
			if err != nil {
				logger.Info("jwt auth middleware unknown account", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"numero": phoneNumber,
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

func WithAccount(ctx context.Context, account domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext returns the account resolved by JWTAuth.
func AccountFromContext(ctx context.Context) (domain.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(domain.Account)
	return account, ok
}
