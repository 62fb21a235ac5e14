package company

import (
	"errors"
	"fmt"
)

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrISINAlreadyExists は ISIN 重複時に返却されます。
	ErrISINAlreadyExists = errors.New("isin already exists")
	// ErrNameRequired は会社名が未入力の場合に返却されます。
	ErrNameRequired = errors.New("name is required")
	// ErrTickerRequired はティッカーが未入力の場合に返却されます。
	ErrTickerRequired = errors.New("ticker is required")
	// ErrExchangeRequired は取引所が未入力の場合に返却されます。
	ErrExchangeRequired = errors.New("exchange is required")
	// ErrISINRequired は ISIN が未入力の場合に返却されます。
	ErrISINRequired = errors.New("isin is required")
	// ErrISINInvalidLength は ISIN が 12 文字でない場合に返却されます。
	ErrISINInvalidLength = errors.New("isin must be exactly 12 characters long")
	// ErrISINInvalidCountryCode は ISIN の先頭 2 文字が英字でない場合に返却されます。
	ErrISINInvalidCountryCode = errors.New("the first 2 characters of isin must be alphabetic (A-Z)")
	// ErrISINInvalidFormat は ISIN が書式に一致しない場合に返却されます。
	ErrISINInvalidFormat = errors.New("isin must be 2 letters, 9 alphanumeric characters and a numeric check digit")
	// ErrNameTooLong は会社名が長すぎる場合に返却されます。
	ErrNameTooLong = errors.New("name must be at most 100 characters")
	// ErrTickerTooLong はティッカーが長すぎる場合に返却されます。
	ErrTickerTooLong = errors.New("ticker must be at most 10 characters")
	// ErrExchangeTooLong は取引所名が長すぎる場合に返却されます。
	ErrExchangeTooLong = errors.New("exchange must be at most 20 characters")
	// ErrWebsiteTooLong は Web サイトが長すぎる場合に返却されます。
	ErrWebsiteTooLong = errors.New("website must be at most 255 characters")
	// ErrInvalidWebsite は Web サイトが http/https の絶対 URL でない場合に返却されます。
	ErrInvalidWebsite = errors.New("website must be an absolute http or https url")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)

// ValidationError は項目単位の入力エラーです。
type ValidationError struct {
	Field string
	Err   error
}

func newValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UniqueViolationError は一意制約に違反した場合のビジネスルールエラーです。
type UniqueViolationError struct {
	Property string
	Value    string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s '%s' already exists and must be unique", e.Property, e.Value)
}

func (e *UniqueViolationError) Unwrap() error {
	return ErrISINAlreadyExists
}

func newISINConflict(isin string) error {
	return &UniqueViolationError{Property: "ISIN", Value: isin}
}
