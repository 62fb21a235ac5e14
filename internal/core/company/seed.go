package company

import (
	"context"
	"fmt"
)

func strPtr(v string) *string {
	return &v
}

// DefaultSeed は空のデータベースに投入する初期データです。
var DefaultSeed = []CreateCompanyInput{
	{Name: "Apple Inc.", Ticker: "AAPL", Exchange: "NASDAQ", ISIN: "US0378331005", Website: strPtr("http://www.apple.com")},
	{Name: "British Airways Plc", Ticker: "BAIRY", Exchange: "Pink Sheets", ISIN: "US1104193065"},
	{Name: "Heineken NV", Ticker: "HEIA", Exchange: "Euronext Amsterdam", ISIN: "NL0000009165"},
	{Name: "Panasonic Corp", Ticker: "6752", Exchange: "Tokyo Stock Exchange", ISIN: "JP3866800000", Website: strPtr("http://www.panasonic.co.jp")},
	{Name: "Porsche Automobil", Ticker: "PAH3", Exchange: "Deutsche Börse", ISIN: "DE000PAH0038", Website: strPtr("https://www.porsche.com/")},
}

// Seed は会社が 1 件も存在しない場合に限り inputs を作成し、作成件数を返します。
func Seed(ctx context.Context, repo Repository, svc UseCase, inputs []CreateCompanyInput) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: count companies: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for i, in := range inputs {
		if _, err := svc.CreateCompany(ctx, in); err != nil {
			return i, fmt.Errorf("seed: create %s: %w", in.ISIN, err)
		}
	}

	return len(inputs), nil
}
