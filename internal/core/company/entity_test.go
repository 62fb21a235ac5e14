package company

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewCompany_ValidationOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cases := []struct {
		name     string
		in       [4]string
		expected error
		field    string
	}{
		{name: "all empty reports name first", in: [4]string{"", "", "", ""}, expected: ErrNameRequired, field: "name"},
		{name: "blank ticker", in: [4]string{"Test", "  ", "", ""}, expected: ErrTickerRequired, field: "ticker"},
		{name: "blank exchange", in: [4]string{"Test", "TEST", "", ""}, expected: ErrExchangeRequired, field: "exchange"},
		{name: "long name", in: [4]string{strings.Repeat("n", 101), "TEST", "NYSE", "US0000000001"}, expected: ErrNameTooLong, field: "name"},
		{name: "long ticker", in: [4]string{"Test", "TOOLONGTICK", "NYSE", "US0000000001"}, expected: ErrTickerTooLong, field: "ticker"},
		{name: "long exchange", in: [4]string{"Test", "TEST", strings.Repeat("x", 21), "US0000000001"}, expected: ErrExchangeTooLong, field: "exchange"},
		{name: "blank isin", in: [4]string{"Test", "TEST", "NYSE", " "}, expected: ErrISINRequired, field: "isin"},
		{name: "short isin", in: [4]string{"Test", "TEST", "NYSE", "US123"}, expected: ErrISINInvalidLength, field: "isin"},
		{name: "long isin", in: [4]string{"Test", "TEST", "NYSE", "US00000000011"}, expected: ErrISINInvalidLength, field: "isin"},
		{name: "non ascii isin", in: [4]string{"Test", "TEST", "NYSE", "US000000000é"}, expected: ErrISINInvalidFormat, field: "isin"},
		{name: "numeric country code", in: [4]string{"Test", "TEST", "NYSE", "120000000001"}, expected: ErrISINInvalidCountryCode, field: "isin"},
		{name: "alpha check digit", in: [4]string{"Test", "TEST", "NYSE", "US000000000X"}, expected: ErrISINInvalidFormat, field: "isin"},
		{name: "symbol in body", in: [4]string{"Test", "TEST", "NYSE", "US00000-0001"}, expected: ErrISINInvalidFormat, field: "isin"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewCompany("id", tc.in[0], tc.in[1], tc.in[2], tc.in[3], nil, now)
			if c != nil {
				t.Fatalf("expected no entity, got %+v", c)
			}
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tc.field {
				t.Fatalf("expected ValidationError on %s, got %#v", tc.field, err)
			}
		})
	}
}

func TestValidateISIN_Normalizes(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"US0378331005", " us0378331005 ", "Us0378331005"} {
		isin, err := ValidateISIN(raw)
		if err != nil {
			t.Fatalf("ValidateISIN(%q) returned error: %v", raw, err)
		}
		if isin != "US0378331005" {
			t.Fatalf("ValidateISIN(%q) = %q", raw, isin)
		}
	}
}

func TestValidateISIN_RejectsNonMatching(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "U10378331005", "US037833100A", "US03783310.5", "ÄB0378331005", "DE000PAH003"} {
		if _, err := ValidateISIN(raw); err == nil {
			t.Fatalf("expected ValidateISIN(%q) to fail", raw)
		}
	}
}

func TestValidateWebsite(t *testing.T) {
	t.Parallel()

	valid := []string{"", "   ", "http://example.com", "https://www.example.co.uk", "https://subdomain.example.com/path?query=value"}
	for _, raw := range valid {
		raw := raw
		if err := ValidateWebsite(&raw); err != nil {
			t.Fatalf("expected %q to be valid, got %v", raw, err)
		}
	}

	if err := ValidateWebsite(nil); err != nil {
		t.Fatalf("expected nil website to be valid, got %v", err)
	}

	invalid := []string{"http://example.com/" + strings.Repeat("a", 240), "not-a-url", "example.com", "ftp://example.com", "mailto:info@example.com", "http://"}
	for _, raw := range invalid {
		raw := raw
		if err := ValidateWebsite(&raw); err == nil {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestCompany_Update_AllOrNothing(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCompany("id", "Test", "TEST", "NYSE", "US0000000001", nil, created)
	if err != nil {
		t.Fatalf("NewCompany returned error: %v", err)
	}

	before := *c
	if err := c.Update("Renamed", "REN", "LSE", "bad", nil, created.Add(time.Hour)); !errors.Is(err, ErrISINInvalidLength) {
		t.Fatalf("expected ErrISINInvalidLength, got %v", err)
	}

	if *c != before {
		t.Fatalf("expected entity untouched, got %+v", c)
	}

	website := " https://example.com "
	later := created.Add(2 * time.Hour)
	if err := c.Update("Renamed", "ren", "lse", "gb0002634946", &website, later); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if c.ID != "id" || c.Ticker != "REN" || c.ISIN != "GB0002634946" || *c.Website != "https://example.com" {
		t.Fatalf("unexpected entity after update: %+v", c)
	}

	if !c.UpdatedAt.Equal(later) || !c.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %v %v", c.CreatedAt, c.UpdatedAt)
	}
}
