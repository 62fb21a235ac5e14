package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	GRPCListenAddr     string        `yaml:"grpc_listen_addr"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	IdleTimeout        time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout"`
	WriteTimeoutRaw    string        `yaml:"write_timeout"`
	IdleTimeoutRaw     string        `yaml:"idle_timeout"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	ApplicationName    string        `yaml:"application_name"`
	IsolationLevel     string        `yaml:"isolation_level"`
	LogQueries         bool          `yaml:"log_queries"`
	Seed               bool          `yaml:"seed"`
}

// AuthConfig はトークン発行と検証に関する設定です。
type AuthConfig struct {
	Issuer      string         `yaml:"issuer"`
	Audience    string         `yaml:"audience"`
	SigningKey  string         `yaml:"signing_key"`
	Scope       string         `yaml:"scope"`
	TokenTTL    time.Duration  `yaml:"-"`
	TokenTTLRaw string         `yaml:"token_ttl"`
	Clients     []ClientConfig `yaml:"clients"`
}

// ClientConfig は client credentials で認証するクライアントの定義です。
type ClientConfig struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Secret string   `yaml:"secret"`
	Scopes []string `yaml:"scopes"`
}

// LoggingConfig はロガーの設定です。
type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	Output string        `yaml:"output"`
	File   FileLogConfig `yaml:"file"`
}

// FileLogConfig はファイル出力時のローテーション設定です。
type FileLogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// CacheConfig は Redis キャッシュの設定です。
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"-"`
	TTLRaw   string        `yaml:"ttl"`
}

// 秘密情報を上書きする環境変数名です。
const (
	EnvDatabasePassword = "DATABASE_PASSWORD"
	EnvAuthSigningKey   = "AUTH_SIGNING_KEY"
	EnvCachePassword    = "CACHE_PASSWORD"
)

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabasePassword); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup(EnvAuthSigningKey); ok && v != "" {
		c.Auth.SigningKey = v
	}
	if v, ok := lookup(EnvCachePassword); ok && v != "" {
		c.Cache.Password = v
	}
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Logging.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Cache.validateAndNormalize(); err != nil {
		return err
	}

	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	durations := []struct {
		name   string
		raw    string
		dst    *time.Duration
		preset time.Duration
	}{
		{name: "read_timeout", raw: s.ReadTimeoutRaw, dst: &s.ReadTimeout, preset: 15 * time.Second},
		{name: "write_timeout", raw: s.WriteTimeoutRaw, dst: &s.WriteTimeout, preset: 15 * time.Second},
		{name: "idle_timeout", raw: s.IdleTimeoutRaw, dst: &s.IdleTimeout, preset: 60 * time.Second},
		{name: "shutdown_timeout", raw: s.ShutdownTimeoutRaw, dst: &s.ShutdownTimeout, preset: 10 * time.Second},
	}

	for _, d := range durations {
		v, err := parseDurationAllowEmpty(d.raw)
		if err != nil {
			return fmt.Errorf("config: server.%s: %w", d.name, err)
		}
		if v == 0 {
			v = d.preset
		}
		*d.dst = v
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.ApplicationName == "" {
		d.ApplicationName = "company-registry"
	}

	d.IsolationLevel = strings.ToLower(strings.TrimSpace(d.IsolationLevel))
	switch d.IsolationLevel {
	case "", "read committed", "repeatable read", "serializable":
	default:
		return fmt.Errorf("config: database.isolation_level %q is not supported", d.IsolationLevel)
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if a.SigningKey == "" {
		return fmt.Errorf("config: auth.signing_key must be set")
	}
	if a.Issuer == "" {
		a.Issuer = "company-registry"
	}
	if a.Audience == "" {
		a.Audience = "companyapi"
	}
	if a.Scope == "" {
		a.Scope = a.Audience
	}

	ttl, err := parseDurationAllowEmpty(a.TokenTTLRaw)
	if err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	a.TokenTTL = ttl

	seen := make(map[string]struct{}, len(a.Clients))
	for i := range a.Clients {
		client := &a.Clients[i]
		if client.ID == "" {
			return fmt.Errorf("config: auth.clients[%d].id must be set", i)
		}
		if client.Secret == "" {
			return fmt.Errorf("config: auth.clients[%d].secret must be set", i)
		}
		if _, dup := seen[client.ID]; dup {
			return fmt.Errorf("config: auth.clients[%d].id %q is duplicated", i, client.ID)
		}
		seen[client.ID] = struct{}{}

		if client.Name == "" {
			client.Name = client.ID
		}
		if len(client.Scopes) == 0 {
			client.Scopes = []string{a.Scope}
		}
	}

	return nil
}

func (l *LoggingConfig) validateAndNormalize() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}

	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	switch l.Format {
	case "":
		l.Format = "json"
	case "json", "console":
	default:
		return fmt.Errorf("config: logging.format must be json or console, got %q", l.Format)
	}

	l.Output = strings.ToLower(strings.TrimSpace(l.Output))
	switch l.Output {
	case "":
		l.Output = "stdout"
	case "stdout", "stderr":
	case "file":
		if l.File.Path == "" {
			return fmt.Errorf("config: logging.file.path must be set when output is file")
		}
		if l.File.MaxSizeMB == 0 {
			l.File.MaxSizeMB = 100
		}
	default:
		return fmt.Errorf("config: logging.output must be stdout, stderr or file, got %q", l.Output)
	}

	return nil
}

func (c *CacheConfig) validateAndNormalize() error {
	ttl, err := parseDurationAllowEmpty(c.TTLRaw)
	if err != nil {
		return fmt.Errorf("config: cache.ttl: %w", err)
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	c.TTL = ttl

	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("config: cache.addr must be set when cache is enabled")
	}

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
