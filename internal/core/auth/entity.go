package auth

import (
	"slices"
	"strings"
)

// GrantTypeClientCredentials は OAuth2 クライアントクレデンシャルグラントです。
const GrantTypeClientCredentials = "client_credentials"

// TokenTypeBearer は発行するアクセストークンの種別です。
const TokenTypeBearer = "Bearer"

// Client は API を利用するマシンクライアントです。
type Client struct {
	ID         string
	Name       string
	SecretHash string
	Scopes     []string
}

// AllowsScopes は要求スコープがすべてクライアントに許可されているかを返します。
func (c *Client) AllowsScopes(requested []string) bool {
	for _, scope := range requested {
		if !slices.Contains(c.Scopes, scope) {
			return false
		}
	}
	return true
}

// Token はトークンエンドポイントの応答です。
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	Scope       string
}

// Principal は検証済みアクセストークンの主体です。
type Principal struct {
	ClientID string
	Scopes   []string
}

// HasScope は主体が指定スコープを持つかを返します。
func (p *Principal) HasScope(scope string) bool {
	return p != nil && slices.Contains(p.Scopes, scope)
}

// ParseScope はスペース区切りのスコープ文字列を重複なしのスライスに変換します。
func ParseScope(raw string) []string {
	var scopes []string
	for _, scope := range strings.Fields(raw) {
		if !slices.Contains(scopes, scope) {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}
