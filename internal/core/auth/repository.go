package auth

import "context"

// ClientStore は登録済みクライアントを参照するインターフェースです。
type ClientStore interface {
	FindByID(ctx context.Context, id string) (*Client, error)
}
