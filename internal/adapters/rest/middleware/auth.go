package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/company-registry/internal/core/auth"
	"go.uber.org/zap"
)

// TokenValidator はアクセストークンを検証し主体を返します。
type TokenValidator interface {
	Validate(token string) (*auth.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext は認証済みの主体をコンテキストから取得します。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*auth.Principal)
	return p, ok
}

// RequireAuth は Bearer トークンを検証し、scope を持たない主体を拒否します。
func RequireAuth(validator TokenValidator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := chimw.GetReqID(ctx)

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.Warn("unauthorized access - missing token",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				description := "Invalid or expired token"
				if errors.Is(err, auth.ErrTokenExpired) {
					description = "Token has expired"
				}
				logger.Warn("unauthorized access - invalid token",
					zap.String("request_id", requestID),
					zap.Error(err),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", description)
				return
			}

			if scope != "" && !principal.HasScope(scope) {
				logger.Warn("forbidden access - missing scope",
					zap.String("request_id", requestID),
					zap.String("client_id", principal.ClientID),
					zap.String("required_scope", scope),
				)
				writeAuthError(w, http.StatusForbidden, "insufficient_scope", "Token does not carry the required scope")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, principalContextKey{}, principal)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + description + `"}`))
}
