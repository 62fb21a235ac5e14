package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TokenIssuer はアクセストークンを署名・発行します。
type TokenIssuer interface {
	Issue(clientID string, scopes []string, now time.Time) (token string, expiresAt time.Time, err error)
}

// UseCase は認証ユースケースの公開インターフェースです。
type UseCase interface {
	IssueToken(ctx context.Context, in IssueTokenInput) (*Token, error)
}

// IssueTokenInput はトークン発行要求です。
type IssueTokenInput struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string
}

// Service はクライアントクレデンシャルによるトークン発行を扱います。
type Service struct {
	clients ClientStore
	issuer  TokenIssuer
	clock   Clock
}

// NewService は Service を生成します。
func NewService(clients ClientStore, issuer TokenIssuer, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{clients: clients, issuer: issuer, clock: clock}
}

// IssueToken はクライアントを認証し、アクセストークンを発行します。
func (s *Service) IssueToken(ctx context.Context, in IssueTokenInput) (*Token, error) {
	switch strings.TrimSpace(in.GrantType) {
	case GrantTypeClientCredentials:
	case "":
		return nil, ErrInvalidRequest
	default:
		return nil, ErrUnsupportedGrantType
	}

	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" || in.ClientSecret == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	if err := VerifySecret(in.ClientSecret, client.SecretHash); err != nil {
		return nil, err
	}

	scopes := ParseScope(in.Scope)
	if len(scopes) == 0 {
		scopes = client.Scopes
	}
	if !client.AllowsScopes(scopes) {
		return nil, ErrInvalidScope
	}

	now := s.clock.Now()
	value, expiresAt, err := s.issuer.Issue(client.ID, scopes, now)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &Token{
		AccessToken: value,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(expiresAt.Sub(now).Seconds()),
		Scope:       strings.Join(scopes, " "),
	}, nil
}
