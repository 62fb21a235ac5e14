package auth

import "errors"

var (
	// ErrClientNotFound はクライアントが登録されていない場合に返却されます。
	ErrClientNotFound = errors.New("client not found")
	// ErrInvalidRequest は必須パラメータが欠けている場合に返却されます。
	ErrInvalidRequest = errors.New("invalid_request")
	// ErrInvalidClient はクライアント認証に失敗した場合に返却されます。
	ErrInvalidClient = errors.New("invalid_client")
	// ErrUnsupportedGrantType は未対応のグラント種別の場合に返却されます。
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	// ErrInvalidScope は許可されていないスコープが要求された場合に返却されます。
	ErrInvalidScope = errors.New("invalid_scope")
	// ErrInvalidToken はアクセストークンが不正な場合に返却されます。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired はアクセストークンの有効期限切れの場合に返却されます。
	ErrTokenExpired = errors.New("token has expired")
)
