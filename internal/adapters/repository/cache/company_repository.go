package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ogurasousui/company-registry/internal/core/company"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	companyIDKeyPrefix   = "company:id:"
	companyISINKeyPrefix = "company:isin:"
)

// Commander は CompanyRepository が利用する Redis コマンドの部分集合です。
type Commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CompanyRepository は company.Repository の前段に置く Redis の読み取りキャッシュです。
// ISIN のキーには ID だけを保存し、実体は ID のキーから引きます。
// 書き込み系はキャッシュに触れず、エントリは読み取りでのみ作られます。
type CompanyRepository struct {
	next   company.Repository
	client Commander
	ttl    time.Duration
	logger *zap.Logger
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(next company.Repository, client Commander, ttl time.Duration, logger *zap.Logger) *CompanyRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyRepository{next: next, client: client, ttl: ttl, logger: logger}
}

var (
	_ company.Repository  = (*CompanyRepository)(nil)
	_ company.Invalidator = (*CompanyRepository)(nil)
)

type cachedCompany struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	Exchange  string    `json:"exchange"`
	ISIN      string    `json:"isin"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Create はストアへ委譲します。キャッシュは最初の読み取りで埋まります。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	return r.next.Create(ctx, c)
}

// Update はストアへ委譲します。キーの破棄はコミット後の Invalidate で行います。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) (*company.Company, error) {
	return r.next.Update(ctx, c)
}

// Invalidate はコミット済みの更新に合わせて ID と ISIN のキーを破棄します。
// 旧 ISIN のキーは ID のエントリと ISIN が一致しなくなるため読み取り時にミスになります。
func (r *CompanyRepository) Invalidate(ctx context.Context, c *company.Company) {
	if c == nil {
		return
	}
	r.invalidate(ctx, c.ID, c.ISIN)
}

// FindByID はキャッシュを優先して会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	if cached, ok := r.loadByID(ctx, id); ok {
		return cached, nil
	}

	found, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, found)
	return found, nil
}

// FindByISIN はキャッシュを優先して会社を取得します。
func (r *CompanyRepository) FindByISIN(ctx context.Context, isin string) (*company.Company, error) {
	id, err := r.client.Get(ctx, companyISINKeyPrefix+isin).Result()
	switch {
	case err == nil:
		// ID のキーが更新で破棄されていれば ISIN が一致しないのでミス扱いにします。
		if cached, ok := r.loadByID(ctx, id); ok && cached.ISIN == isin {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("company cache get failed", zap.String("isin", isin), zap.Error(err))
	}

	found, err := r.next.FindByISIN(ctx, isin)
	if err != nil {
		return nil, err
	}
	r.store(ctx, found)
	return found, nil
}

// ExistsByISIN は一意性判定のため常にストアへ問い合わせます。
func (r *CompanyRepository) ExistsByISIN(ctx context.Context, isin string) (bool, error) {
	return r.next.ExistsByISIN(ctx, isin)
}

// Count は件数をストアへ問い合わせます。
func (r *CompanyRepository) Count(ctx context.Context) (int, error) {
	return r.next.Count(ctx)
}

// List は一覧をストアへ問い合わせます。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, string, error) {
	return r.next.List(ctx, filter)
}

func (r *CompanyRepository) loadByID(ctx context.Context, id string) (*company.Company, bool) {
	raw, err := r.client.Get(ctx, companyIDKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("company cache get failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}

	var cached cachedCompany
	if err := json.Unmarshal(raw, &cached); err != nil {
		r.logger.Warn("company cache entry is corrupted", zap.String("id", id), zap.Error(err))
		return nil, false
	}

	return &company.Company{
		ID:        cached.ID,
		Name:      cached.Name,
		Ticker:    cached.Ticker,
		Exchange:  cached.Exchange,
		ISIN:      cached.ISIN,
		Website:   cached.Website,
		CreatedAt: cached.CreatedAt,
		UpdatedAt: cached.UpdatedAt,
	}, true
}

func (r *CompanyRepository) store(ctx context.Context, c *company.Company) {
	raw, err := json.Marshal(cachedCompany{
		ID:        c.ID,
		Name:      c.Name,
		Ticker:    c.Ticker,
		Exchange:  c.Exchange,
		ISIN:      c.ISIN,
		Website:   c.Website,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		r.logger.Warn("company cache encode failed", zap.String("id", c.ID), zap.Error(err))
		return
	}

	if err := r.client.Set(ctx, companyIDKeyPrefix+c.ID, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("company cache set failed", zap.String("id", c.ID), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, companyISINKeyPrefix+c.ISIN, c.ID, r.ttl).Err(); err != nil {
		r.logger.Warn("company cache set failed", zap.String("isin", c.ISIN), zap.Error(err))
	}
}

func (r *CompanyRepository) invalidate(ctx context.Context, id, isin string) {
	if err := r.client.Del(ctx, companyIDKeyPrefix+id, companyISINKeyPrefix+isin).Err(); err != nil {
		r.logger.Warn("company cache invalidate failed", zap.String("id", id), zap.Error(err))
	}
}
