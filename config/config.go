package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Events   EventsConfig   `mapstructure:"events"`
	Address  AddressConfig  `mapstructure:"address"`
	Nodes    []NodeConfig   `mapstructure:"nodes"`
	Backup   BackupConfig   `mapstructure:"backup"`
	NodeSim  NodeSimConfig  `mapstructure:"nodesim"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := c.Address.Validate(); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	for i := range c.Nodes {
		if err := c.Nodes[i].Validate(); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	return nil
}

type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Pretty   bool   `mapstructure:"pretty"` // human-readable output (dev only)
	File     string `mapstructure:"file"`   // empty = console only
	MaxKB    int64  `mapstructure:"max_kb"`
	MaxRolls int    `mapstructure:"max_rolls"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	EncryptionKey string `mapstructure:"encryption_key"` // optional 32-byte hex key
}

// Validate checks the backend name and the optional key.
func (s *StorageConfig) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Backend, validation.Required,
			validation.In(BackendMemory, BackendBolt, BackendBadger, BackendPostgres)),
		validation.Field(&s.Path, validation.When(
			s.Backend == BackendBolt || s.Backend == BackendBadger, validation.Required)),
		validation.Field(&s.EncryptionKey, validation.By(hexKey32)),
	)
}

// Key decodes EncryptionKey; nil when unset.
func (s StorageConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	return hex.DecodeString(s.EncryptionKey)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	EventStream string        `mapstructure:"event_stream"`
	StreamLen   int64         `mapstructure:"stream_len"`
	LeaseTTL    time.Duration `mapstructure:"lease_ttl"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type VaultConfig struct {
	ArgonTime    uint32        `mapstructure:"argon_time"`
	ArgonMemory  uint32        `mapstructure:"argon_memory"` // KiB
	ArgonThreads uint8         `mapstructure:"argon_threads"`
	UnlockTTL    time.Duration `mapstructure:"unlock_ttl"`
	Compress     bool          `mapstructure:"compress"`
}

func (v *VaultConfig) Validate() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.ArgonTime, validation.Required),
		validation.Field(&v.ArgonMemory, validation.Required, validation.Min(uint32(8))),
		validation.Field(&v.ArgonThreads, validation.Required),
		validation.Field(&v.UnlockTTL, validation.Required),
	)
}

type SyncConfig struct {
	GapLimit         int           `mapstructure:"gap_limit"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MinInterval      time.Duration `mapstructure:"min_interval"`
	RetryAttempts    uint64        `mapstructure:"retry_attempts"`
	RetryBase        time.Duration `mapstructure:"retry_base"`
	Parallelism      int           `mapstructure:"parallelism"`
	PromoteThreshold time.Duration `mapstructure:"promote_threshold"`
	StopGrace        time.Duration `mapstructure:"stop_grace"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

func (s *SyncConfig) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.GapLimit, validation.Required, validation.Min(1)),
		validation.Field(&s.PollInterval, validation.Required),
		validation.Field(&s.Parallelism, validation.Required, validation.Min(1)),
	)
}

type EventsConfig struct {
	Persist bool `mapstructure:"persist"`
}

type AddressConfig struct {
	HRP      string `mapstructure:"hrp"`
	CoinType uint32 `mapstructure:"coin_type"`
}

func (a *AddressConfig) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.HRP, validation.Required, validation.Length(1, 16)),
	)
}

type NodeConfig struct {
	URL      string `mapstructure:"url"`
	Disabled bool   `mapstructure:"disabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	JWT      string `mapstructure:"jwt"`
}

func (n *NodeConfig) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.URL, validation.Required, validation.By(httpURL)),
	)
}

type BackupConfig struct {
	S3Region        string `mapstructure:"s3_region"`
	S3Endpoint      string `mapstructure:"s3_endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type NodeSimConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
	Username  string        `mapstructure:"username"` // basic auth; empty disables
	Password  string        `mapstructure:"password"`
	DevRoutes bool          `mapstructure:"dev_routes"` // faucet and state overrides
}

// Addr returns the simulator listen address.
func (n NodeSimConfig) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

func hexKey32(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return errors.New("must be hex encoded")
	}
	if len(key) != 32 {
		return fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return nil
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WALLET_.
// Nested keys use underscore: WALLET_STORAGE_BACKEND, WALLET_SYNC_GAP_LIMIT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_kb", 10*1024)
	v.SetDefault("log.max_rolls", 3)
	v.SetDefault("storage.backend", BackendBolt)
	v.SetDefault("storage.path", "./data/wallet.db")
	v.SetDefault("storage.encryption_key", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ledger_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.event_stream", "wallet:events")
	v.SetDefault("redis.stream_len", 10000)
	v.SetDefault("redis.lease_ttl", "2m")
	v.SetDefault("vault.argon_time", 1)
	v.SetDefault("vault.argon_memory", 64*1024)
	v.SetDefault("vault.argon_threads", 4)
	v.SetDefault("vault.unlock_ttl", "15m")
	v.SetDefault("vault.compress", true)
	v.SetDefault("sync.gap_limit", 20)
	v.SetDefault("sync.poll_interval", "30s")
	v.SetDefault("sync.min_interval", "5s")
	v.SetDefault("sync.retry_attempts", 3)
	v.SetDefault("sync.retry_base", "200ms")
	v.SetDefault("sync.parallelism", 4)
	v.SetDefault("sync.promote_threshold", "2m")
	v.SetDefault("sync.stop_grace", "10s")
	v.SetDefault("sync.request_timeout", "15s")
	v.SetDefault("events.persist", true)
	v.SetDefault("address.hrp", "atoi")
	v.SetDefault("address.coin_type", 4218)
	v.SetDefault("backup.s3_region", "us-east-1")
	v.SetDefault("backup.s3_endpoint", "")
	v.SetDefault("nodesim.host", "127.0.0.1")
	v.SetDefault("nodesim.port", 14265)
	v.SetDefault("nodesim.jwt_secret", "")
	v.SetDefault("nodesim.jwt_issuer", "ledger-nodesim")
	v.SetDefault("nodesim.jwt_expiry", "24h")
	v.SetDefault("nodesim.username", "")
	v.SetDefault("nodesim.password", "")
	v.SetDefault("nodesim.dev_routes", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WALLET_STORAGE_PATH -> storage.path
	v.SetEnvPrefix("WALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required; env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
