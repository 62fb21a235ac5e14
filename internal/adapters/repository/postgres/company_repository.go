package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/company-registry/internal/core/company"
	pgdb "github.com/ogurasousui/company-registry/internal/platform/db/postgres"
)

const (
	companyUniqueViolationCode = "23505"
	companyCheckViolationCode  = "23514"
)

const companyColumns = `id::text, name, ticker, exchange, isin, website, created_at, updated_at`

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO companies (id, name, ticker, exchange, isin, website, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+companyColumns,
		c.ID, c.Name, c.Ticker, c.Exchange, c.ISIN, nullableString(c.Website), c.CreatedAt, c.UpdatedAt)

	created, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err, c.ISIN)
	}
	return created, nil
}

// Update は会社情報を更新します。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE companies
           SET name = $1,
               ticker = $2,
               exchange = $3,
               isin = $4,
               website = $5,
               updated_at = $6
         WHERE id = $7
        RETURNING `+companyColumns,
		c.Name, c.Ticker, c.Exchange, c.ISIN, nullableString(c.Website), c.UpdatedAt, c.ID)

	updated, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err, c.ISIN)
	}
	return updated, nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+companyColumns+`
          FROM companies
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err, "")
	}
	return found, nil
}

// FindByISIN は ISIN で会社を取得します。
func (r *CompanyRepository) FindByISIN(ctx context.Context, isin string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+companyColumns+`
          FROM companies
         WHERE isin = $1
         LIMIT 1
    `, isin)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err, "")
	}
	return found, nil
}

// ExistsByISIN は同じ ISIN を持つ会社が存在するかを返します。
func (r *CompanyRepository) ExistsByISIN(ctx context.Context, isin string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE isin = $1)`, isin).Scan(&exists); err != nil {
		return false, translateCompanyPgError(err, "")
	}
	return exists, nil
}

// Count は会社の総数を返します。
func (r *CompanyRepository) Count(ctx context.Context) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var count int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count); err != nil {
		return 0, translateCompanyPgError(err, "")
	}
	return count, nil
}

// List は会社の一覧を名前順で取得します。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, string, error) {
	if filter.Limit < 0 {
		return nil, "", company.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", company.ErrInvalidPageToken
	}

	query := `
        SELECT ` + companyColumns + `
          FROM companies
         ORDER BY name ASC, id ASC`

	var args []any
	if filter.Limit > 0 {
		query += `
         LIMIT $1
        OFFSET $2`
		args = append(args, filter.Limit+1, filter.Offset)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateCompanyPgError(err, "")
	}
	defer rows.Close()

	companies := make([]*company.Company, 0)
	for rows.Next() {
		found, err := scanCompany(rows)
		if err != nil {
			return nil, "", translateCompanyPgError(err, "")
		}
		companies = append(companies, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateCompanyPgError(err, "")
	}

	var nextToken string
	if filter.Limit > 0 && len(companies) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		companies = companies[:filter.Limit]
	}

	return companies, nextToken, nil
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		id, name, ticker     string
		exchange, isin       string
		website              sql.NullString
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &name, &ticker, &exchange, &isin, &website, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}

	var websitePtr *string
	if website.Valid {
		value := website.String
		websitePtr = &value
	}

	return &company.Company{
		ID:        id,
		Name:      name,
		Ticker:    ticker,
		Exchange:  exchange,
		ISIN:      isin,
		Website:   websitePtr,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// translateCompanyPgError は一意インデックス違反を事前チェックと同じドメインエラーへ変換します。
func translateCompanyPgError(err error, isin string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case companyUniqueViolationCode:
			return &company.UniqueViolationError{Property: "ISIN", Value: isin}
		case companyCheckViolationCode:
			return &company.ValidationError{Field: "isin", Err: company.ErrISINInvalidFormat}
		}
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
