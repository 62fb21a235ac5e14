package company

import "context"

// Repository は会社エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Update(ctx context.Context, company *Company) (*Company, error)
	FindByID(ctx context.Context, id string) (*Company, error)
	FindByISIN(ctx context.Context, isin string) (*Company, error)
	ExistsByISIN(ctx context.Context, isin string) (bool, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, filter ListCompaniesFilter) ([]*Company, string, error)
}

// ListCompaniesFilter は一覧取得時の検索条件を表します。Limit が 0 の場合は全件を返します。
type ListCompaniesFilter struct {
	Limit  int
	Offset int
}

// Invalidator は Repository が任意で実装する、書き込みのコミット後に呼ばれる破棄処理です。
// トランザクションが失敗した場合は呼ばれません。
type Invalidator interface {
	Invalidate(ctx context.Context, company *Company)
}
