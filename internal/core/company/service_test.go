package company

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	companies   map[string]*Company
	existsErr   error
	existsCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{companies: make(map[string]*Company)}
}

func (r *fakeRepo) Create(_ context.Context, company *Company) (*Company, error) {
	for _, c := range r.companies {
		if c.ISIN == company.ISIN {
			return nil, newISINConflict(company.ISIN)
		}
	}
	clone := cloneCompany(company)
	r.companies[clone.ID] = clone
	return cloneCompany(clone), nil
}

func (r *fakeRepo) Update(_ context.Context, company *Company) (*Company, error) {
	if _, ok := r.companies[company.ID]; !ok {
		return nil, ErrCompanyNotFound
	}
	for _, c := range r.companies {
		if c.ID != company.ID && c.ISIN == company.ISIN {
			return nil, newISINConflict(company.ISIN)
		}
	}
	r.companies[company.ID] = cloneCompany(company)
	return cloneCompany(company), nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Company, error) {
	company, ok := r.companies[id]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	return cloneCompany(company), nil
}

func (r *fakeRepo) FindByISIN(_ context.Context, isin string) (*Company, error) {
	for _, company := range r.companies {
		if company.ISIN == isin {
			return cloneCompany(company), nil
		}
	}
	return nil, ErrCompanyNotFound
}

func (r *fakeRepo) ExistsByISIN(_ context.Context, isin string) (bool, error) {
	r.existsCalls++
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, company := range r.companies {
		if company.ISIN == isin {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) Count(_ context.Context) (int, error) {
	return len(r.companies), nil
}

func (r *fakeRepo) List(_ context.Context, filter ListCompaniesFilter) ([]*Company, string, error) {
	all := make([]*Company, 0, len(r.companies))
	for _, company := range r.companies {
		all = append(all, cloneCompany(company))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name == all[j].Name {
			return all[i].ID < all[j].ID
		}
		return all[i].Name < all[j].Name
	})

	if filter.Limit == 0 {
		return all, "", nil
	}

	if filter.Offset > len(all) {
		return []*Company{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}

	var nextToken string
	if end < len(all) {
		nextToken = strconv.Itoa(end)
	}

	return all[filter.Offset:end], nextToken, nil
}

func cloneCompany(company *Company) *Company {
	if company == nil {
		return nil
	}
	copy := *company
	if company.Website != nil {
		website := *company.Website
		copy.Website = &website
	}
	return &copy
}

func validInput() CreateCompanyInput {
	website := "http://x.com"
	return CreateCompanyInput{
		Name:     "Test",
		Ticker:   "TEST",
		Exchange: "NYSE",
		ISIN:     "US0000000001",
		Website:  &website,
	}
}

func TestService_CreateCompany_Success(t *testing.T) {
	t.Parallel()

	website := "  https://www.example.com  "
	clk := &stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newFakeRepo()
	svc := NewService(repo, clk, nil)

	created, err := svc.CreateCompany(context.Background(), CreateCompanyInput{
		Name:     "  Example Inc.  ",
		Ticker:   " exm ",
		Exchange: " nasdaq",
		ISIN:     " us0378331005 ",
		Website:  &website,
	})
	if err != nil {
		t.Fatalf("CreateCompany returned error: %v", err)
	}

	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	if created.Name != "Example Inc." {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}

	if created.Ticker != "EXM" || created.Exchange != "NASDAQ" {
		t.Fatalf("expected upper-cased ticker/exchange, got %s/%s", created.Ticker, created.Exchange)
	}

	if created.ISIN != "US0378331005" {
		t.Fatalf("expected normalized isin, got %s", created.ISIN)
	}

	if created.Website == nil || *created.Website != "https://www.example.com" {
		t.Fatalf("expected trimmed website, got %+v", created.Website)
	}

	if !created.CreatedAt.Equal(clk.now) || !created.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected timestamps to use clock, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}
}

func TestService_CreateCompany_WithWebsite(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	created, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if created.Website == nil || *created.Website != "http://x.com" {
		t.Fatalf("expected website to be kept, got %+v", created.Website)
	}
}

func TestService_CreateCompany_NameRequired(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	in := validInput()
	in.Name = ""
	in.Website = nil

	_, err := svc.CreateCompany(context.Background(), in)
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "name" {
		t.Fatalf("expected ValidationError on name, got %#v", err)
	}

	if !strings.Contains(strings.ToLower(err.Error()), "name") {
		t.Fatalf("expected message to mention name, got %q", err.Error())
	}
}

func TestService_CreateCompany_InvalidWebsite(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	in := validInput()
	website := "ftp://example.com"
	in.Website = &website

	if _, err := svc.CreateCompany(context.Background(), in); !errors.Is(err, ErrInvalidWebsite) {
		t.Fatalf("expected ErrInvalidWebsite, got %v", err)
	}

	if repo.existsCalls != 0 {
		t.Fatalf("expected no uniqueness query for invalid input, got %d", repo.existsCalls)
	}
}

func TestService_CreateCompany_DuplicateISIN(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	if _, err := svc.CreateCompany(context.Background(), validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := validInput()
	second.Name = "Another"
	second.ISIN = " us0000000001"

	_, err := svc.CreateCompany(context.Background(), second)
	if !errors.Is(err, ErrISINAlreadyExists) {
		t.Fatalf("expected ErrISINAlreadyExists, got %v", err)
	}

	var uErr *UniqueViolationError
	if !errors.As(err, &uErr) || uErr.Property != "ISIN" || uErr.Value != "US0000000001" {
		t.Fatalf("expected UniqueViolationError for ISIN, got %#v", err)
	}

	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected 'already exists' in message, got %q", err.Error())
	}
}

func TestService_CreateCompany_UniquenessQueryError(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.existsErr = errors.New("db down")
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateCompany(context.Background(), validInput())
	if err == nil || !errors.Is(err, repo.existsErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestService_UpdateCompany_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	clk := &stubClock{now: time.Now()}
	svc := NewService(repo, clk, nil)

	created, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	clk.now = clk.now.Add(time.Hour)

	updated, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:       created.ID,
		Name:     " New Name ",
		Ticker:   "new",
		Exchange: "lse",
		ISIN:     "gb0002634946",
	})
	if err != nil {
		t.Fatalf("UpdateCompany returned error: %v", err)
	}

	if updated.Name != "New Name" || updated.Ticker != "NEW" || updated.Exchange != "LSE" {
		t.Fatalf("update not normalized: %+v", updated)
	}

	if updated.ISIN != "GB0002634946" {
		t.Fatalf("expected new isin, got %s", updated.ISIN)
	}

	if updated.Website != nil {
		t.Fatalf("expected website cleared, got %+v", updated.Website)
	}

	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated timestamp to match clock, got %v", updated.UpdatedAt)
	}

	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created timestamp to be preserved")
	}
}

type invalidatingRepo struct {
	*fakeRepo
	invalidated []string
}

func (r *invalidatingRepo) Invalidate(_ context.Context, company *Company) {
	r.invalidated = append(r.invalidated, company.ID+":"+company.ISIN)
}

type failingCommitTx struct {
	err error
}

func (m failingCommitTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m failingCommitTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return m.err
}

func TestService_UpdateCompany_InvalidatesAfterCommit(t *testing.T) {
	t.Parallel()

	repo := &invalidatingRepo{fakeRepo: newFakeRepo()}
	svc := NewService(repo, nil, nil)

	created, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}
	if len(repo.invalidated) != 0 {
		t.Fatalf("create must not invalidate, got %v", repo.invalidated)
	}

	in := UpdateCompanyInput{ID: created.ID, Name: "Renamed", Ticker: "TEST", Exchange: "NYSE", ISIN: "US0000000002"}
	if _, err := svc.UpdateCompany(context.Background(), in); err != nil {
		t.Fatalf("UpdateCompany error: %v", err)
	}

	want := created.ID + ":US0000000002"
	if len(repo.invalidated) != 1 || repo.invalidated[0] != want {
		t.Fatalf("expected invalidation %s, got %v", want, repo.invalidated)
	}
}

func TestService_UpdateCompany_CommitFailureSkipsInvalidation(t *testing.T) {
	t.Parallel()

	repo := &invalidatingRepo{fakeRepo: newFakeRepo()}
	created, err := NewService(repo, nil, nil).CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	commitErr := errors.New("commit failed")
	svc := NewService(repo, nil, failingCommitTx{err: commitErr})

	in := UpdateCompanyInput{ID: created.ID, Name: "Renamed", Ticker: "TEST", Exchange: "NYSE", ISIN: "US0000000002"}
	if _, err := svc.UpdateCompany(context.Background(), in); !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}

	if len(repo.invalidated) != 0 {
		t.Fatalf("expected no invalidation after failed commit, got %v", repo.invalidated)
	}
}

func TestService_UpdateCompany_SameISINSkipsUniquenessQuery(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}
	calls := repo.existsCalls

	if _, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:       created.ID,
		Name:     "Renamed",
		Ticker:   created.Ticker,
		Exchange: created.Exchange,
		ISIN:     strings.ToLower(created.ISIN),
	}); err != nil {
		t.Fatalf("UpdateCompany error: %v", err)
	}

	if repo.existsCalls != calls {
		t.Fatalf("expected no uniqueness query for unchanged isin")
	}
}

func TestService_UpdateCompany_DuplicateISIN(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	first, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	in := validInput()
	in.ISIN = "US0000000002"
	second, err := svc.CreateCompany(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	_, err = svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:       second.ID,
		Name:     second.Name,
		Ticker:   second.Ticker,
		Exchange: second.Exchange,
		ISIN:     first.ISIN,
	})
	if !errors.Is(err, ErrISINAlreadyExists) {
		t.Fatalf("expected ErrISINAlreadyExists, got %v", err)
	}
}

func TestService_UpdateCompany_InvalidFieldsLeaveEntityUntouched(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.CreateCompany(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	_, err = svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:       created.ID,
		Name:     "Changed",
		Ticker:   "",
		Exchange: "NYSE",
		ISIN:     created.ISIN,
	})
	if !errors.Is(err, ErrTickerRequired) {
		t.Fatalf("expected ErrTickerRequired, got %v", err)
	}

	stored, err := repo.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if stored.Name != created.Name {
		t.Fatalf("expected stored entity unchanged, got %+v", stored)
	}
}

func TestService_UpdateCompany_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{
		ID:       "7f1c0a4e-2f1b-4d7e-9a43-0f4a1c2b3d4e",
		Name:     "Test",
		Ticker:   "TEST",
		Exchange: "NYSE",
		ISIN:     "US0000000001",
	})
	if !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestService_UpdateCompany_InvalidID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.UpdateCompany(context.Background(), UpdateCompanyInput{ID: "not-a-uuid"})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_GetCompany_RoundTrip(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	website := " http://x.com "
	created, err := svc.CreateCompany(context.Background(), CreateCompanyInput{
		Name:     " Test ",
		Ticker:   "test",
		Exchange: "nyse",
		ISIN:     "us0000000001",
		Website:  &website,
	})
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}

	byID, err := svc.GetCompany(context.Background(), GetCompanyInput{ID: strings.ToUpper(created.ID)})
	if err != nil {
		t.Fatalf("GetCompany returned error: %v", err)
	}

	byISIN, err := svc.GetCompanyByISIN(context.Background(), GetCompanyByISINInput{ISIN: " us0000000001 "})
	if err != nil {
		t.Fatalf("GetCompanyByISIN returned error: %v", err)
	}

	for _, found := range []*Company{byID, byISIN} {
		if found.ID != created.ID || found.Name != "Test" || found.Ticker != "TEST" ||
			found.Exchange != "NYSE" || found.ISIN != "US0000000001" ||
			found.Website == nil || *found.Website != "http://x.com" {
			t.Fatalf("unexpected round-trip result: %+v", found)
		}
	}
}

func TestService_GetCompany_InvalidID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.GetCompany(context.Background(), GetCompanyInput{ID: "   "}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_GetCompanyByISIN_Empty(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.GetCompanyByISIN(context.Background(), GetCompanyByISINInput{ISIN: "  "}); !errors.Is(err, ErrISINRequired) {
		t.Fatalf("expected ErrISINRequired, got %v", err)
	}
}

func TestService_GetCompanyByISIN_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.GetCompanyByISIN(context.Background(), GetCompanyByISINInput{ISIN: "US0000000009"}); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestService_ListCompanies_AllByDefault(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	for i := 0; i < 3; i++ {
		in := validInput()
		in.Name = fmt.Sprintf("Company %d", i)
		in.ISIN = fmt.Sprintf("US000000000%d", i)
		if _, err := svc.CreateCompany(context.Background(), in); err != nil {
			t.Fatalf("CreateCompany error: %v", err)
		}
	}

	result, err := svc.ListCompanies(context.Background(), ListCompaniesInput{})
	if err != nil {
		t.Fatalf("ListCompanies returned error: %v", err)
	}

	if len(result.Companies) != 3 {
		t.Fatalf("expected 3 companies, got %d", len(result.Companies))
	}

	if result.NextPageToken != "" {
		t.Fatalf("expected no next token, got %s", result.NextPageToken)
	}
}

func TestService_ListCompanies_Empty(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	result, err := svc.ListCompanies(context.Background(), ListCompaniesInput{})
	if err != nil {
		t.Fatalf("ListCompanies returned error: %v", err)
	}

	if result.Companies == nil || len(result.Companies) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", result.Companies)
	}
}

func TestService_ListCompanies_Pagination(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	for i := 0; i < 3; i++ {
		in := validInput()
		in.Name = fmt.Sprintf("Company %d", i)
		in.ISIN = fmt.Sprintf("US000000000%d", i)
		if _, err := svc.CreateCompany(context.Background(), in); err != nil {
			t.Fatalf("CreateCompany error: %v", err)
		}
	}

	result, err := svc.ListCompanies(context.Background(), ListCompaniesInput{PageSize: 2})
	if err != nil {
		t.Fatalf("ListCompanies returned error: %v", err)
	}

	if len(result.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(result.Companies))
	}

	if result.NextPageToken != "2" {
		t.Fatalf("expected next token 2, got %s", result.NextPageToken)
	}
}

func TestService_ListCompanies_PageSizeValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	for _, size := range []int{-1, maxListPageSize + 1} {
		if _, err := svc.ListCompanies(context.Background(), ListCompaniesInput{PageSize: size}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("page size %d: expected ErrInvalidPageSize, got %v", size, err)
		}
	}
}

func TestService_ListCompanies_PageTokenValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.ListCompanies(context.Background(), ListCompaniesInput{PageSize: 1, PageToken: "abc"})
	if !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
