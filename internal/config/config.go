// Package config provides configuration management for the news watcher.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration is matched by every validation error; it is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Configuration validation errors.
var (
	ErrNoSources               = fmt.Errorf("%w: at least one source is required", ErrConfiguration)
	ErrNoEnabledSources        = fmt.Errorf("%w: at least one source must be enabled", ErrConfiguration)
	ErrDuplicateSourceID       = fmt.Errorf("%w: duplicate source id", ErrConfiguration)
	ErrSourceMissingID         = fmt.Errorf("%w: source id is required", ErrConfiguration)
	ErrSourceMissingURL        = fmt.Errorf("%w: source needs urls, feed_url or listing.url", ErrConfiguration)
	ErrSourceInvalidTier       = fmt.Errorf("%w: tier must be 'government' or 'media'", ErrConfiguration)
	ErrUnknownStrategy         = fmt.Errorf("%w: unknown extraction strategy", ErrConfiguration)
	ErrSelectorStrategyNoRules = fmt.Errorf("%w: selector strategy needs selectors.title or selectors.body", ErrConfiguration)
	ErrListingMissingSelector  = fmt.Errorf("%w: listing.link_selector is required", ErrConfiguration)
	ErrInvalidMaxAttempts      = fmt.Errorf("%w: fetch.max_attempts must be at least 1", ErrConfiguration)
	ErrInvalidBackoff          = fmt.Errorf("%w: fetch.backoff_base_seconds must be non-negative", ErrConfiguration)
	ErrInvalidTimeout          = fmt.Errorf("%w: fetch.timeout_seconds must be at least 1", ErrConfiguration)
	ErrInvalidInterval         = fmt.Errorf("%w: min_request_interval_ms must be non-negative", ErrConfiguration)
	ErrEmptyIdentity           = fmt.Errorf("%w: fetch.identity_pool entries need a user_agent", ErrConfiguration)
	ErrInvalidThresholds       = fmt.Errorf("%w: classification.thresholds must satisfy high > medium > low >= 0", ErrConfiguration)
	ErrInvalidMultiplier       = fmt.Errorf("%w: classification.tier_multipliers must be positive", ErrConfiguration)
	ErrInvalidSimilarity       = fmt.Errorf("%w: dedup.similarity_threshold must be in (0, 1]", ErrConfiguration)
	ErrInvalidWindow           = fmt.Errorf("%w: dedup.window_hours must be non-negative", ErrConfiguration)
	ErrInvalidMinSeverity      = fmt.Errorf("%w: alerts.min_severity must be low, medium or high", ErrConfiguration)
	ErrInvalidHistoryBackend   = fmt.Errorf("%w: storage.history must be memory, file or redis", ErrConfiguration)
	ErrMissingHistoryPath      = fmt.Errorf("%w: storage.history_path is required for the file backend", ErrConfiguration)
	ErrMissingRedisAddr        = fmt.Errorf("%w: storage.redis.addr is required for the redis backend", ErrConfiguration)
	ErrMissingWebhookURL       = fmt.Errorf("%w: sinks.webhook.url is required", ErrConfiguration)
	ErrIncompleteSMTP          = fmt.Errorf("%w: sinks.smtp needs addr, from and at least one recipient", ErrConfiguration)
	ErrInvalidSMTPTLS          = fmt.Errorf("%w: sinks.smtp.tls must be starttls, tls or none", ErrConfiguration)
	ErrInvalidLogLevel         = fmt.Errorf("%w: logging.level must be one of: debug, info, warn, error", ErrConfiguration)
	ErrInvalidLogFormat        = fmt.Errorf("%w: logging.format must be text or json", ErrConfiguration)
)

// Strategy names accepted in a source profile.
const (
	StrategyReadability = "readability"
	StrategySelector    = "selector"
	StrategyMeta        = "meta"
	StrategyGeneric     = "generic"
)

// History backends.
const (
	HistoryMemory = "memory"
	HistoryFile   = "file"
	HistoryRedis  = "redis"
)

var knownStrategies = map[string]bool{
	StrategyReadability: true,
	StrategySelector:    true,
	StrategyMeta:        true,
	StrategyGeneric:     true,
}

// Config represents the complete watcher configuration.
type Config struct {
	Classification ClassificationConfig `yaml:"classification"`
	Sinks          SinksConfig          `yaml:"sinks"`
	Storage        StorageConfig        `yaml:"storage"`
	Alerts         AlertsConfig         `yaml:"alerts"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Normalization  NormalizationConfig  `yaml:"normalization"`
	Sources        []SourceConfig       `yaml:"sources"`
	Fetch          FetchPolicy          `yaml:"fetch"`
	Extraction     ExtractionConfig     `yaml:"extraction"`
	Dedup          DedupConfig          `yaml:"dedup"`
}

// SourceConfig is one entry of the source registry.
type SourceConfig struct {
	Listing              *ListingConfig `yaml:"listing"`
	Selectors            SelectorConfig `yaml:"selectors"`
	ID                   string         `yaml:"id"`
	Name                 string         `yaml:"name"`
	Tier                 string         `yaml:"tier"`
	FeedURL              string         `yaml:"feed_url"`
	URLs                 []string       `yaml:"urls"`
	Strategies           []string       `yaml:"strategies"`
	MinRequestIntervalMs int            `yaml:"min_request_interval_ms"`
	Enabled              bool           `yaml:"enabled"`
}

// ListingConfig describes an HTML index page whose links point at articles.
type ListingConfig struct {
	URL          string `yaml:"url"`
	LinkSelector string `yaml:"link_selector"`
	MaxLinks     int    `yaml:"max_links"`
}

// SelectorConfig holds CSS selectors for the selector strategy.
type SelectorConfig struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
	Date  string `yaml:"date"`
}

// DisplayName returns the human name of the source, falling back to its id.
func (s *SourceConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	return s.ID
}

// GetAllURLs returns the primary URL followed by its backups.
func (s *SourceConfig) GetAllURLs() []string {
	urls := make([]string, 0, len(s.URLs))
	urls = append(urls, s.URLs...)

	return urls
}

// HasDiscovery reports whether the source finds articles through a feed or listing.
func (s *SourceConfig) HasDiscovery() bool {
	return s.FeedURL != "" || s.Listing != nil
}

// Identity is one client identity presented to sources.
type Identity struct {
	Headers   map[string]string `yaml:"headers"`
	UserAgent string            `yaml:"user_agent"`
}

// FetchPolicy defines retry, timeout and rate-limit behavior.
type FetchPolicy struct {
	IdentityPool         []Identity `yaml:"identity_pool"`
	BackoffBaseSeconds   float64    `yaml:"backoff_base_seconds"`
	MaxBackoffSeconds    float64    `yaml:"max_backoff_seconds"`
	MaxAttempts          int        `yaml:"max_attempts"`
	TimeoutSeconds       int        `yaml:"timeout_seconds"`
	MinRequestIntervalMs int        `yaml:"min_request_interval_ms"`
	MaxBodyKb            int        `yaml:"max_body_kb"`
	MaxConcurrentSources int        `yaml:"max_concurrent_sources"`
	RespectRobots        bool       `yaml:"respect_robots"`
}

// ExtractionConfig defines quality rules for extracted content.
type ExtractionConfig struct {
	DefaultStrategies   []string `yaml:"default_strategies"`
	MinBodyLength       int      `yaml:"min_body_length"`
	MaxBoilerplateRatio float64  `yaml:"max_boilerplate_ratio"`
}

// NormalizationConfig lists the date layouts tried in order.
type NormalizationConfig struct {
	DateLayouts []string `yaml:"date_layouts"`
}

// DedupConfig defines near-duplicate detection.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	WindowHours         int     `yaml:"window_hours"`
}

// Thresholds convert a severity score into a tier. A score strictly above a
// threshold reaches that tier.
type Thresholds struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// ClassificationConfig configures the keyword scorer.
type ClassificationConfig struct {
	TierMultipliers map[string]float64 `yaml:"tier_multipliers"`
	HighTerms       []string           `yaml:"high_terms"`
	MediumTerms     []string           `yaml:"medium_terms"`
	LowTerms        []string           `yaml:"low_terms"`
	Thresholds      Thresholds         `yaml:"thresholds"`
	RelevanceFilter bool               `yaml:"relevance_filter"`
}

// AlertsConfig configures the alert engine.
type AlertsConfig struct {
	MinSeverity    string `yaml:"min_severity"`
	Channel        string `yaml:"channel"`
	DigestMaxItems int    `yaml:"digest_max_items"`
	DigestPreview  int    `yaml:"digest_preview"`
}

// SinksConfig enables notification sinks.
type SinksConfig struct {
	Webhook *WebhookConfig `yaml:"webhook"`
	SMTP    *SMTPConfig    `yaml:"smtp"`
	Log     bool           `yaml:"log"`
}

// WebhookConfig configures the HTTP webhook sink.
type WebhookConfig struct {
	URL             string `yaml:"url"`
	Token           string `yaml:"token"`
	SigningSecret   string `yaml:"signing_secret"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	BreakerFailures int    `yaml:"breaker_failures"`
	BreakerOpenSec  int    `yaml:"breaker_open_seconds"`
}

// SMTPConfig configures the e-mail sink. TLS is starttls (default), tls for
// implicit TLS, or none for a plaintext relay.
type SMTPConfig struct {
	Addr           string   `yaml:"addr"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	From           string   `yaml:"from"`
	TLS            string   `yaml:"tls"`
	To             []string `yaml:"to"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// SMTP transport security modes.
const (
	SMTPStartTLS = "starttls"
	SMTPTLS      = "tls"
	SMTPNone     = "none"
)

// Timeout returns the dial and per-command timeout.
func (s *SMTPConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig configures the persistence collaborators.
type StorageConfig struct {
	History      string      `yaml:"history"`
	HistoryPath  string      `yaml:"history_path"`
	PendingPath  string      `yaml:"pending_path"`
	ArticlesPath string      `yaml:"articles_path"`
	DigestState  string      `yaml:"digest_state_path"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis history backend.
type RedisConfig struct {
	Addr              string `yaml:"addr"`
	Password          string `yaml:"password"`
	KeyPrefix         string `yaml:"key_prefix"`
	DB                int    `yaml:"db"`
	ReservationTTLSec int    `yaml:"reservation_ttl_seconds"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoadConfig loads, defaults and validates configuration from a YAML file.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrConfiguration, err)
	}

	cfg.ApplyDefaults()
	cfg.expandSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills unset values. Classification thresholds are never defaulted.
func (c *Config) ApplyDefaults() {
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = 3
	}

	if c.Fetch.BackoffBaseSeconds == 0 {
		c.Fetch.BackoffBaseSeconds = 2
	}

	if c.Fetch.MaxBackoffSeconds == 0 {
		c.Fetch.MaxBackoffSeconds = 60
	}

	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 15
	}

	if c.Fetch.MaxBodyKb == 0 {
		c.Fetch.MaxBodyKb = 4096
	}

	if c.Fetch.MaxConcurrentSources == 0 {
		c.Fetch.MaxConcurrentSources = 4
	}

	if len(c.Fetch.IdentityPool) == 0 {
		c.Fetch.IdentityPool = DefaultIdentities()
	}

	if c.Extraction.MinBodyLength == 0 {
		c.Extraction.MinBodyLength = 80
	}

	if c.Extraction.MaxBoilerplateRatio == 0 {
		c.Extraction.MaxBoilerplateRatio = 0.5
	}

	if len(c.Extraction.DefaultStrategies) == 0 {
		c.Extraction.DefaultStrategies = []string{StrategyReadability, StrategyMeta, StrategyGeneric}
	}

	if c.Dedup.SimilarityThreshold == 0 {
		c.Dedup.SimilarityThreshold = 0.8
	}

	if c.Dedup.WindowHours == 0 {
		c.Dedup.WindowHours = 48
	}

	if c.Classification.TierMultipliers == nil {
		c.Classification.TierMultipliers = map[string]float64{"government": 1.5, "media": 1.0}
	}

	if c.Alerts.MinSeverity == "" {
		c.Alerts.MinSeverity = "medium"
	}

	if c.Alerts.DigestMaxItems == 0 {
		c.Alerts.DigestMaxItems = 5
	}

	if c.Alerts.DigestPreview == 0 {
		c.Alerts.DigestPreview = 3
	}

	if c.Storage.History == "" {
		c.Storage.History = HistoryMemory
	}

	if c.Storage.DigestState == "" && c.Storage.ArticlesPath != "" {
		c.Storage.DigestState = filepath.Join(filepath.Dir(c.Storage.ArticlesPath), "digest_state.json")
	}

	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "cybernews:"
	}

	if c.Storage.Redis.ReservationTTLSec == 0 {
		c.Storage.Redis.ReservationTTLSec = 300
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	for i := range c.Sources {
		if len(c.Sources[i].Strategies) == 0 {
			c.Sources[i].Strategies = append([]string(nil), c.Extraction.DefaultStrategies...)
		}

		if c.Sources[i].Listing != nil && c.Sources[i].Listing.MaxLinks == 0 {
			c.Sources[i].Listing.MaxLinks = 20
		}
	}

	if c.Sinks.SMTP != nil {
		if c.Sinks.SMTP.TLS == "" {
			c.Sinks.SMTP.TLS = SMTPStartTLS
		}

		if c.Sinks.SMTP.TimeoutSeconds == 0 {
			c.Sinks.SMTP.TimeoutSeconds = 30
		}
	}

	if c.Sinks.Webhook != nil {
		if c.Sinks.Webhook.TimeoutSeconds == 0 {
			c.Sinks.Webhook.TimeoutSeconds = 10
		}

		if c.Sinks.Webhook.BreakerFailures == 0 {
			c.Sinks.Webhook.BreakerFailures = 5
		}

		if c.Sinks.Webhook.BreakerOpenSec == 0 {
			c.Sinks.Webhook.BreakerOpenSec = 60
		}
	}
}

func (c *Config) expandSecrets() {
	if c.Sinks.Webhook != nil {
		c.Sinks.Webhook.Token = os.ExpandEnv(c.Sinks.Webhook.Token)
		c.Sinks.Webhook.SigningSecret = os.ExpandEnv(c.Sinks.Webhook.SigningSecret)
	}

	if c.Sinks.SMTP != nil {
		c.Sinks.SMTP.Password = os.ExpandEnv(c.Sinks.SMTP.Password)
	}

	c.Storage.Redis.Password = os.ExpandEnv(c.Storage.Redis.Password)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}

	if err := c.validateFetch(); err != nil {
		return err
	}

	t := c.Classification.Thresholds
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low >= 0) {
		return ErrInvalidThresholds
	}

	for tier, m := range c.Classification.TierMultipliers {
		if m <= 0 || math.IsNaN(m) {
			return fmt.Errorf("%w: %s", ErrInvalidMultiplier, tier)
		}
	}

	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		return ErrInvalidSimilarity
	}

	if c.Dedup.WindowHours < 0 {
		return ErrInvalidWindow
	}

	switch strings.ToLower(c.Alerts.MinSeverity) {
	case "low", "medium", "high":
	default:
		return ErrInvalidMinSeverity
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateSinks(); err != nil {
		return err
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]bool, len(c.Sources))
	enabledCount := 0

	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingID, i)
		}

		if seen[src.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceID, src.ID)
		}

		seen[src.ID] = true

		if len(src.URLs) == 0 && !src.HasDiscovery() {
			return fmt.Errorf("%w: %s", ErrSourceMissingURL, src.ID)
		}

		if src.Tier != "government" && src.Tier != "media" {
			return fmt.Errorf("%w: %s", ErrSourceInvalidTier, src.ID)
		}

		if src.Listing != nil && (src.Listing.URL == "" || src.Listing.LinkSelector == "") {
			return fmt.Errorf("%w: %s", ErrListingMissingSelector, src.ID)
		}

		if src.MinRequestIntervalMs < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidInterval, src.ID)
		}

		for _, name := range src.Strategies {
			if !knownStrategies[name] {
				return fmt.Errorf("%w: %s in source %s", ErrUnknownStrategy, name, src.ID)
			}

			if name == StrategySelector && src.Selectors.Title == "" && src.Selectors.Body == "" {
				return fmt.Errorf("%w: %s", ErrSelectorStrategyNoRules, src.ID)
			}
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSources
	}

	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Fetch.BackoffBaseSeconds < 0 || c.Fetch.MaxBackoffSeconds < 0 {
		return ErrInvalidBackoff
	}

	if c.Fetch.TimeoutSeconds < 1 {
		return ErrInvalidTimeout
	}

	if c.Fetch.MinRequestIntervalMs < 0 {
		return ErrInvalidInterval
	}

	for _, id := range c.Fetch.IdentityPool {
		if strings.TrimSpace(id.UserAgent) == "" {
			return ErrEmptyIdentity
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.History {
	case HistoryMemory:
	case HistoryFile:
		if c.Storage.HistoryPath == "" {
			return ErrMissingHistoryPath
		}
	case HistoryRedis:
		if c.Storage.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidHistoryBackend
	}

	return nil
}

func (c *Config) validateSinks() error {
	if c.Sinks.Webhook != nil && c.Sinks.Webhook.URL == "" {
		return ErrMissingWebhookURL
	}

	if s := c.Sinks.SMTP; s != nil && (s.Addr == "" || s.From == "" || len(s.To) == 0) {
		return ErrIncompleteSMTP
	}

	if s := c.Sinks.SMTP; s != nil {
		switch s.TLS {
		case SMTPStartTLS, SMTPTLS, SMTPNone:
		default:
			return ErrInvalidSMTPTLS
		}
	}

	return nil
}

// GetEnabledSources returns only enabled sources.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// Source returns the registry entry for id.
func (c *Config) Source(id string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}

	return SourceConfig{}, false
}

// BackoffDelay returns the wait after the given zero-based failed attempt:
// base * 2^attempt, capped at the maximum backoff.
func (p *FetchPolicy) BackoffDelay(attempt int) time.Duration {
	if attempt < 0 || p.BackoffBaseSeconds <= 0 {
		return 0
	}

	seconds := p.BackoffBaseSeconds * math.Pow(2, float64(attempt))
	if p.MaxBackoffSeconds > 0 && seconds > p.MaxBackoffSeconds {
		seconds = p.MaxBackoffSeconds
	}

	return time.Duration(seconds * float64(time.Second))
}

// GetTimeout returns the per-attempt timeout.
func (p *FetchPolicy) GetTimeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// MinInterval returns the rate-limit interval for a source, falling back to the
// policy-wide interval.
func (p *FetchPolicy) MinInterval(src SourceConfig) time.Duration {
	if src.MinRequestIntervalMs > 0 {
		return time.Duration(src.MinRequestIntervalMs) * time.Millisecond
	}

	return time.Duration(p.MinRequestIntervalMs) * time.Millisecond
}

// DedupWindow returns the dedup publication window.
func (d DedupConfig) DedupWindow() time.Duration {
	return time.Duration(d.WindowHours) * time.Hour
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, MaxAttempts: %d, History: %s}",
		len(c.Sources),
		c.Fetch.MaxAttempts,
		c.Storage.History,
	)
}
