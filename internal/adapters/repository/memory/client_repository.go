package memory

import (
	"context"
	"slices"

	"github.com/ogurasousui/company-registry/internal/core/auth"
)

// ClientRepository は設定ファイル由来のクライアントを保持する読み取り専用ストアです。
type ClientRepository struct {
	clients map[string]*auth.Client
}

// NewClientRepository は ClientRepository を生成します。同じ ID は後勝ちです。
func NewClientRepository(clients []*auth.Client) *ClientRepository {
	byID := make(map[string]*auth.Client, len(clients))
	for _, c := range clients {
		if c == nil {
			continue
		}
		byID[c.ID] = cloneClient(c)
	}
	return &ClientRepository{clients: byID}
}

// FindByID は ID でクライアントを取得します。
func (r *ClientRepository) FindByID(_ context.Context, id string) (*auth.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, auth.ErrClientNotFound
	}
	return cloneClient(c), nil
}

func cloneClient(c *auth.Client) *auth.Client {
	copy := *c
	copy.Scopes = slices.Clone(c.Scopes)
	return &copy
}
