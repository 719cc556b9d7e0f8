package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultAddr            = ":8080"
	DefaultResourceGroup   = "SDK"
	DefaultEndpointSuffix  = "core.windows.net"
	DefaultSweepInterval   = 10 * time.Second
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultCommitTopic     = "upload-complete"
	DefaultQueueSize       = 64
)

type Config struct {
	Server              ServerConfig              `yaml:"server"`
	Storage             StorageConfig             `yaml:"storage"`
	Token               TokenConfig               `yaml:"token"`
	Cache               CacheConfig               `yaml:"cache"`
	OrganizationManager OrganizationManagerConfig `yaml:"organization_manager"`
	Events              EventsConfig              `yaml:"events"`
	Issuers             []IssuerConfig            `yaml:"issuers"`
	Audit               AuditConfig               `yaml:"audit"`
	RateLimit           RateLimitConfig           `yaml:"rate_limit"`
	Admin               AdminConfig               `yaml:"admin"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Type is "azure" or "stub".
	Type string `yaml:"type"`

	SubscriptionID string `yaml:"subscription_id"`
	ResourceGroup  string `yaml:"resource_group"`

	// TenantID, ClientID and ClientSecret select a client secret credential.
	// If any of them is empty, the default Azure credential chain is used.
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	EndpointSuffix string `yaml:"endpoint_suffix"`

	// AccountCacheTTL caches organization to account resolution. Zero disables it.
	AccountCacheTTL  time.Duration `yaml:"account_cache_ttl"`
	AccountCacheSize int           `yaml:"account_cache_size"`

	// Stub configures the in-memory backend.
	Stub StubStorageConfig `yaml:"stub"`
}

type StubStorageConfig struct {
	// Containers maps account names to their containers.
	Containers map[string][]string `yaml:"containers"`
}

// TokenConfig holds the lifetime of each token tier in minutes.
type TokenConfig struct {
	Expiration struct {
		Read   int `yaml:"read"`
		Write  int `yaml:"write"`
		Delete int `yaml:"delete"`
	} `yaml:"expiration"`
}

func (c TokenConfig) ReadLifetime() time.Duration   { return minutes(c.Expiration.Read) }
func (c TokenConfig) WriteLifetime() time.Duration  { return minutes(c.Expiration.Write) }
func (c TokenConfig) DeleteLifetime() time.Duration { return minutes(c.Expiration.Delete) }

type CacheConfig struct {
	// Buffer is subtracted (in minutes) from a token's expiry before it is reused.
	Buffer        int           `yaml:"buffer"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c CacheConfig) BufferDuration() time.Duration { return minutes(c.Buffer) }

type OrganizationManagerConfig struct {
	OrganizationEndpoint string        `yaml:"organization_endpoint"`
	SpaceEndpoint        string        `yaml:"space_endpoint"`
	Timeout              time.Duration `yaml:"timeout"`
}

type EventsConfig struct {
	Kafka     KafkaConfig `yaml:"kafka"`
	Workers   int         `yaml:"workers"`
	QueueSize int         `yaml:"queue_size"`
}

// KafkaConfig enables the Kafka sink when brokers are set; otherwise commits are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// IssuerConfig holds configuration for a bearer token issuer.
type IssuerConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "oidc", "hmac", "static"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Type       string `yaml:"type"` // e.g., "file", "memory"
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"`
	Burst     int `yaml:"burst"`
}

type AdminConfig struct {
	SigningKey string `yaml:"signing_key"`
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// Load reads and parses the configuration file at the given path.
// Environment variables referenced as ${VAR} are expanded before parsing.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "azure"
	}
	if c.Storage.ResourceGroup == "" {
		c.Storage.ResourceGroup = DefaultResourceGroup
	}
	if c.Storage.EndpointSuffix == "" {
		c.Storage.EndpointSuffix = DefaultEndpointSuffix
	}
	if c.Storage.AccountCacheSize <= 0 {
		c.Storage.AccountCacheSize = 128
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = DefaultSweepInterval
	}
	if c.OrganizationManager.Timeout <= 0 {
		c.OrganizationManager.Timeout = DefaultUpstreamTimeout
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = DefaultCommitTopic
	}
	if c.Events.Workers <= 0 {
		c.Events.Workers = 1
	}
	if c.Events.QueueSize <= 0 {
		c.Events.QueueSize = DefaultQueueSize
	}
	if c.Audit.Type == "" {
		c.Audit.Type = "memory"
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	switch c.Storage.Type {
	case "azure":
		if c.Storage.SubscriptionID == "" {
			add("storage.subscription_id is required for the azure backend")
		}
	case "stub":
	default:
		add("unknown storage.type '%s'", c.Storage.Type)
	}
	if c.Storage.AccountCacheTTL < 0 {
		add("storage.account_cache_ttl must not be negative")
	}

	for _, e := range []struct {
		name    string
		minutes int
	}{
		{"read", c.Token.Expiration.Read},
		{"write", c.Token.Expiration.Write},
		{"delete", c.Token.Expiration.Delete},
	} {
		if e.minutes <= 0 {
			add("token.expiration.%s must be a positive number of minutes", e.name)
		}
	}
	if c.Cache.Buffer < 0 {
		add("cache.buffer must not be negative")
	}

	for _, e := range [][2]string{
		{"organization_manager.organization_endpoint", c.OrganizationManager.OrganizationEndpoint},
		{"organization_manager.space_endpoint", c.OrganizationManager.SpaceEndpoint},
	} {
		key, raw := e[0], e[1]
		if raw == "" {
			add("%s is required", key)
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			add("%s is not an absolute URL: '%s'", key, raw)
		}
	}

	seen := make(map[string]struct{})
	for idx, i := range c.Issuers {
		if i.Name == "" {
			add("issuer at index %d has empty name", idx)
			continue
		}
		if _, ok := seen[i.Name]; ok {
			add("duplicate issuer name '%s'", i.Name)
		}
		seen[i.Name] = struct{}{}
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "memory":
		case "file":
			if c.Audit.Path == "" {
				add("audit.path is required for file auditing")
			}
		default:
			add("unknown audit.type '%s'", c.Audit.Type)
		}
	}

	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		add("rate_limit values must not be negative")
	}

	return result.ErrorOrNil()
}
