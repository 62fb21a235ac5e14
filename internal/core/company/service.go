package company

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const maxListPageSize = 200

// Service は会社に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は会社ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error)
	GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error)
	GetCompanyByISIN(ctx context.Context, in GetCompanyByISINInput) (*Company, error)
	ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error)
	UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateCompanyInput は会社作成時の入力です。
type CreateCompanyInput struct {
	Name     string
	Ticker   string
	Exchange string
	ISIN     string
	Website  *string
}

// UpdateCompanyInput は会社更新時の入力です。PUT による全項目置き換えを表します。
type UpdateCompanyInput struct {
	ID       string
	Name     string
	Ticker   string
	Exchange string
	ISIN     string
	Website  *string
}

// GetCompanyInput は会社取得時の入力です。
type GetCompanyInput struct {
	ID string
}

// GetCompanyByISINInput は ISIN による会社取得時の入力です。
type GetCompanyByISINInput struct {
	ISIN string
}

// ListCompaniesInput は一覧取得時の入力です。PageSize が 0 の場合は全件を返します。
type ListCompaniesInput struct {
	PageSize  int
	PageToken string
}

// ListCompaniesResult は一覧取得結果を表します。
type ListCompaniesResult struct {
	Companies     []*Company
	NextPageToken string
}

// CreateCompany は新しい会社を作成します。
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	if err := ValidateWebsite(in.Website); err != nil {
		return nil, err
	}

	company, err := NewCompany(uuid.NewString(), in.Name, in.Ticker, in.Exchange, NormalizeISIN(in.ISIN), in.Website, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureISINNotExists(txCtx, company.ISIN); err != nil {
			return err
		}

		result, err := s.repo.Create(txCtx, company)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateCompany は会社情報を更新します。
func (s *Service) UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	isin := NormalizeISIN(in.ISIN)

	var updated *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if isin != existing.ISIN {
			if err := s.ensureISINNotExists(txCtx, isin); err != nil {
				return err
			}
		}

		if err := ValidateWebsite(in.Website); err != nil {
			return err
		}

		if err := existing.Update(in.Name, in.Ticker, in.Exchange, isin, in.Website, s.clock.Now()); err != nil {
			return err
		}

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	if inv, ok := s.repo.(Invalidator); ok {
		inv.Invalidate(ctx, updated)
	}

	return updated, nil
}

// GetCompany は ID で会社を取得します。
func (s *Service) GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var company *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		company = result
		return nil
	}); err != nil {
		return nil, err
	}

	return company, nil
}

// GetCompanyByISIN は ISIN で会社を取得します。
func (s *Service) GetCompanyByISIN(ctx context.Context, in GetCompanyByISINInput) (*Company, error) {
	isin := NormalizeISIN(in.ISIN)
	if isin == "" {
		return nil, newValidationError("isin", ErrISINRequired)
	}

	var company *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByISIN(txCtx, isin)
		if err != nil {
			return err
		}
		company = result
		return nil
	}); err != nil {
		return nil, err
	}

	return company, nil
}

// ListCompanies は会社の一覧を取得します。
func (s *Service) ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		companies []*Company
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultCompanies, token, err := s.repo.List(txCtx, ListCompaniesFilter{
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		companies = resultCompanies
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	if companies == nil {
		companies = []*Company{}
	}

	return &ListCompaniesResult{
		Companies:     companies,
		NextPageToken: nextToken,
	}, nil
}

// ensureISINNotExists は ISIN の事前重複チェックです。
// 同時実行される作成要求はどちらもこのチェックを通過し得るため、最終的な保証は DB の一意インデックスが担います。
func (s *Service) ensureISINNotExists(ctx context.Context, isin string) error {
	exists, err := s.repo.ExistsByISIN(ctx, isin)
	if err != nil {
		return fmt.Errorf("check isin uniqueness: %w", err)
	}
	if exists {
		return newISINConflict(isin)
	}
	return nil
}

func normalizeID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return parsed.String(), nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize < 0 || pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
