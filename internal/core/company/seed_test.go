package company

import (
	"context"
	"testing"
)

func TestSeed_EmptyStore(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	n, err := Seed(context.Background(), repo, svc, DefaultSeed)
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	if n != len(DefaultSeed) || len(repo.companies) != len(DefaultSeed) {
		t.Fatalf("expected %d seeded companies, got %d (stored %d)", len(DefaultSeed), n, len(repo.companies))
	}

	found, err := svc.GetCompanyByISIN(context.Background(), GetCompanyByISINInput{ISIN: "DE000PAH0038"})
	if err != nil {
		t.Fatalf("GetCompanyByISIN returned error: %v", err)
	}
	if found.Exchange != "DEUTSCHE BÖRSE" {
		t.Fatalf("expected upper-cased exchange, got %s", found.Exchange)
	}
}

func TestSeed_SkipsWhenNotEmpty(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	if _, err := svc.CreateCompany(context.Background(), validInput()); err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	n, err := Seed(context.Background(), repo, svc, DefaultSeed)
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	if n != 0 || len(repo.companies) != 1 {
		t.Fatalf("expected seed to be skipped, got n=%d stored=%d", n, len(repo.companies))
	}
}
