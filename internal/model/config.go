package model

import "time"

// Config is the complete wikipub configuration
type Config struct {
	Wiki         WikiConfig         `yaml:"wiki" mapstructure:"wiki"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Template     TemplateConfig     `yaml:"template" mapstructure:"template"`
	Properties   PropertyConfig     `yaml:"properties" mapstructure:"properties"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Session      SessionConfig      `yaml:"session" mapstructure:"session"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// WikiConfig points at the page wiki and the knowledge base
type WikiConfig struct {
	Language    string `yaml:"language" mapstructure:"language"`           // label language
	SourceAPI   string `yaml:"source_api" mapstructure:"source_api"`       // Wikisource api.php
	RepoAPI     string `yaml:"repo_api" mapstructure:"repo_api"`           // Wikidata api.php
	Site        string `yaml:"site" mapstructure:"site"`                   // site id of the page wiki
	ItemURLBase string `yaml:"item_url_base" mapstructure:"item_url_base"` // prefix for review links
}

// HTTPConfig controls API requests
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	MaxLag       int           `yaml:"maxlag" mapstructure:"maxlag"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AuthConfig holds bot-password credentials. The password is never written
// to config files; set WIKIPUB_AUTH_PASSWORD or put it in .env.
type AuthConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"-" mapstructure:"password"`
}

// TemplateConfig names the navigation template and its parameters
type TemplateConfig struct {
	Name          string `yaml:"name" mapstructure:"name"`
	TitleParam    string `yaml:"title_param" mapstructure:"title_param"`
	PreviousParam string `yaml:"previous_param" mapstructure:"previous_param"`
	NextParam     string `yaml:"next_param" mapstructure:"next_param"`
}

// PropertyConfig names the knowledge-base properties
type PropertyConfig struct {
	PublishedIn PropertyID `yaml:"published_in" mapstructure:"published_in"`
	Follows     PropertyID `yaml:"follows" mapstructure:"follows"`
	FollowedBy  PropertyID `yaml:"followed_by" mapstructure:"followed_by"`
}

// CacheConfig controls the page cache. Items are never cached.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig limits requests per API host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// SessionConfig controls how edits are confirmed
type SessionConfig struct {
	ApplyAll    bool `yaml:"apply_all" mapstructure:"apply_all"`     // start without confirmations
	DryRun      bool `yaml:"dry_run" mapstructure:"dry_run"`         // never write
	Interactive bool `yaml:"interactive" mapstructure:"interactive"` // prompt on the terminal
	SearchLimit int  `yaml:"search_limit" mapstructure:"search_limit"`
}

// OutputConfig controls reports
type OutputConfig struct {
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
	JSONPath    string `yaml:"json,omitempty" mapstructure:"json"`
	MDPath      string `yaml:"md,omitempty" mapstructure:"md"`
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // auto, console, json
}

// DefaultConfig returns defaults for Czech Wikisource and Wikidata
func DefaultConfig() *Config {
	return &Config{
		Wiki: WikiConfig{
			Language:    "cs",
			SourceAPI:   "https://cs.wikisource.org/w/api.php",
			RepoAPI:     "https://www.wikidata.org/w/api.php",
			Site:        "cswikisource",
			ItemURLBase: "https://www.wikidata.org/wiki/",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "wikipub/0.1 (+https://github.com/ppiankov/wikipub)",
			MaxBodyBytes: 8_000_000,
			MaxRetries:   3,
			MaxLag:       5,
		},
		Template: TemplateConfig{
			Name:          "NavigacePaP",
			TitleParam:    "TITUL",
			PreviousParam: "PŘEDCHOZÍ",
			NextParam:     "DALŠÍ",
		},
		Properties: PropertyConfig{
			PublishedIn: "P1433",
			Follows:     "P155",
			FollowedBy:  "P156",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".wikipub-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   6 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Session: SessionConfig{
			Interactive: true,
			SearchLimit: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}
