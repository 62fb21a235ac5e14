package company

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// 各項目の最大長は companies テーブルの列定義と一致させます。
const (
	isinLength        = 12
	maxNameLength     = 100
	maxTickerLength   = 10
	maxExchangeLength = 20
	maxWebsiteLength  = 255
)

var (
	isinPattern        = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	isinCountryPattern = regexp.MustCompile(`^[A-Z]{2}`)
)

// Company は上場会社エンティティです。
type Company struct {
	ID        string
	Name      string
	Ticker    string
	Exchange  string
	ISIN      string
	Website   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCompany は入力値を検証し、正規化済みの会社エンティティを生成します。
// 検証に失敗した場合は *ValidationError を返し、エンティティは生成されません。
func NewCompany(id, name, ticker, exchange, isin string, website *string, now time.Time) (*Company, error) {
	fields, err := normalizeFields(name, ticker, exchange, isin, website)
	if err != nil {
		return nil, err
	}

	return &Company{
		ID:        id,
		Name:      fields.name,
		Ticker:    fields.ticker,
		Exchange:  fields.exchange,
		ISIN:      fields.isin,
		Website:   fields.website,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update は全項目を再検証し、すべて妥当な場合のみ値を置き換えます。
func (c *Company) Update(name, ticker, exchange, isin string, website *string, now time.Time) error {
	fields, err := normalizeFields(name, ticker, exchange, isin, website)
	if err != nil {
		return err
	}

	c.Name = fields.name
	c.Ticker = fields.ticker
	c.Exchange = fields.exchange
	c.ISIN = fields.isin
	c.Website = fields.website
	c.UpdatedAt = now
	return nil
}

type normalizedFields struct {
	name     string
	ticker   string
	exchange string
	isin     string
	website  *string
}

func normalizeFields(name, ticker, exchange, isin string, website *string) (normalizedFields, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return normalizedFields{}, newValidationError("name", ErrNameRequired)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return normalizedFields{}, newValidationError("name", ErrNameTooLong)
	}

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return normalizedFields{}, newValidationError("ticker", ErrTickerRequired)
	}
	if utf8.RuneCountInString(ticker) > maxTickerLength {
		return normalizedFields{}, newValidationError("ticker", ErrTickerTooLong)
	}

	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return normalizedFields{}, newValidationError("exchange", ErrExchangeRequired)
	}
	if utf8.RuneCountInString(exchange) > maxExchangeLength {
		return normalizedFields{}, newValidationError("exchange", ErrExchangeTooLong)
	}

	normalizedISIN, err := ValidateISIN(isin)
	if err != nil {
		return normalizedFields{}, err
	}

	return normalizedFields{
		name:     name,
		ticker:   strings.ToUpper(ticker),
		exchange: strings.ToUpper(exchange),
		isin:     normalizedISIN,
		website:  normalizeWebsite(website),
	}, nil
}

// NormalizeISIN は ISIN の前後空白を除去し大文字化します。
func NormalizeISIN(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateISIN は ISIN を正規化したうえで書式を検証します。
func ValidateISIN(raw string) (string, error) {
	isin := NormalizeISIN(raw)
	if isin == "" {
		return "", newValidationError("isin", ErrISINRequired)
	}
	if utf8.RuneCountInString(isin) != isinLength {
		return "", newValidationError("isin", ErrISINInvalidLength)
	}
	if !isinCountryPattern.MatchString(isin) {
		return "", newValidationError("isin", ErrISINInvalidCountryCode)
	}
	if !isinPattern.MatchString(isin) {
		return "", newValidationError("isin", ErrISINInvalidFormat)
	}
	return isin, nil
}

// ValidateWebsite は Web サイトが空、または http/https の絶対 URL であることを検証します。
func ValidateWebsite(raw *string) error {
	website := normalizeWebsite(raw)
	if website == nil {
		return nil
	}
	if utf8.RuneCountInString(*website) > maxWebsiteLength {
		return newValidationError("website", ErrWebsiteTooLong)
	}

	u, err := url.Parse(*website)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return newValidationError("website", ErrInvalidWebsite)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return newValidationError("website", ErrInvalidWebsite)
	}
}

func normalizeWebsite(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}

	website := trimmed
	return &website
}
