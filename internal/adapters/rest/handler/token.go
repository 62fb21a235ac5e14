package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/company-registry/internal/core/auth"
	"go.uber.org/zap"
)

// TokenPath はトークンエンドポイントのパスです。
const TokenPath = "/connect/token"

// TokenHandler は OAuth2 トークンエンドポイントの HTTP 実装です。
type TokenHandler struct {
	svc    auth.UseCase
	logger *zap.Logger
}

// NewTokenHandler は TokenHandler を生成します。
func NewTokenHandler(svc auth.UseCase, logger *zap.Logger) *TokenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenHandler{svc: svc, logger: logger}
}

// TokenResponse はトークン発行成功時の応答です。
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// OAuthErrorResponse は RFC 6749 5.2 のエラー応答です。
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Register はトークンエンドポイントを登録します。
func (h *TokenHandler) Register(r chi.Router) {
	r.Post(TokenPath, h.handleToken)
}

func (h *TokenHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.writeOAuthError(w, r, auth.ErrInvalidRequest, "request body must be application/x-www-form-urlencoded")
		return
	}

	in := auth.IssueTokenInput{
		GrantType:    r.PostForm.Get("grant_type"),
		ClientID:     r.PostForm.Get("client_id"),
		ClientSecret: r.PostForm.Get("client_secret"),
		Scope:        r.PostForm.Get("scope"),
	}

	if basicID, basicSecret, ok := r.BasicAuth(); ok {
		if in.ClientID != "" || in.ClientSecret != "" {
			h.writeOAuthError(w, r, auth.ErrInvalidRequest, "client credentials must be sent in only one place")
			return
		}
		// Basic 認証の値は form-urlencoded でエンコードされています。
		id, idErr := url.QueryUnescape(basicID)
		secret, secretErr := url.QueryUnescape(basicSecret)
		if idErr != nil || secretErr != nil {
			h.writeOAuthError(w, r, auth.ErrInvalidClient, "malformed basic credentials")
			return
		}
		in.ClientID, in.ClientSecret = id, secret
	}

	token, err := h.svc.IssueToken(r.Context(), in)
	if err != nil {
		h.writeOAuthError(w, r, err, "")
		return
	}

	h.logger.Info("access token issued",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("client_id", in.ClientID),
		zap.String("scope", token.Scope),
	)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		Scope:       token.Scope,
	})
}

func (h *TokenHandler) writeOAuthError(w http.ResponseWriter, r *http.Request, err error, description string) {
	status := http.StatusBadRequest
	resp := OAuthErrorResponse{ErrorDescription: description}

	switch {
	case errors.Is(err, auth.ErrInvalidClient):
		status = http.StatusUnauthorized
		resp.Error = auth.ErrInvalidClient.Error()
		if resp.ErrorDescription == "" {
			resp.ErrorDescription = "client authentication failed"
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="company-registry"`)
	case errors.Is(err, auth.ErrInvalidRequest):
		resp.Error = auth.ErrInvalidRequest.Error()
		if resp.ErrorDescription == "" {
			resp.ErrorDescription = "grant_type, client_id and client_secret are required"
		}
	case errors.Is(err, auth.ErrUnsupportedGrantType):
		resp.Error = auth.ErrUnsupportedGrantType.Error()
		if resp.ErrorDescription == "" {
			resp.ErrorDescription = "only client_credentials is supported"
		}
	case errors.Is(err, auth.ErrInvalidScope):
		resp.Error = auth.ErrInvalidScope.Error()
		if resp.ErrorDescription == "" {
			resp.ErrorDescription = "requested scope is not allowed for this client"
		}
	default:
		status = http.StatusInternalServerError
		resp = OAuthErrorResponse{Error: "server_error"}
	}

	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("oauth_error", resp.Error),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("token request failed", fields...)
	} else {
		h.logger.Warn("token request rejected", fields...)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, resp)
}
