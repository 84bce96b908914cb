package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Telephony    TelephonyConfig
	Conversation ConversationConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	JWTAudience string
	AccessTokenTTL time.Duration
	RefreshTokenTTL time.Duration
}

type TelephonyConfig struct {
	// SIPDomain is the outbound trunk domain dialed targets are routed
	// through (sip:+E164@domain).
	SIPDomain string

	// GatewayURL is the base URL of the media gateway that owns the SIP
	// stack, TTS and transcription.
	GatewayURL string

	WebhookSecret string
}

type ConversationConfig struct {
	// ClarifyThreshold is the answer confidence below which the agent asks
	// one clarification. 1..100, default 80.
	ClarifyThreshold int

	// DefaultMaxCallDuration applies when a survey does not set its own
	// limit. 1..30 minutes, default 5m.
	DefaultMaxCallDuration time.Duration

	// MaxConcurrentCalls bounds in-flight campaign calls per process.
	MaxConcurrentCalls int

	// MaxConcurrentCampaigns bounds running campaigns per org, enforced
	// through Redis so the cap holds across replicas. Default 2.
	MaxConcurrentCampaigns int

	// IntentsFile optionally points at a YAML yes/no/skip vocabulary file.
	IntentsFile string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Telephony.SIPDomain = strings.TrimSpace(os.Getenv("TELEPHONY_SIP_DOMAIN"))
	c.Telephony.GatewayURL = strings.TrimSpace(os.Getenv("TELEPHONY_GATEWAY_URL"))
	c.Telephony.WebhookSecret = os.Getenv("TELEPHONY_WEBHOOK_SECRET")

	// Conversation tuning is optional; defaults applied in Validate().
	c.Conversation.ClarifyThreshold = optInt("CLARIFY_THRESHOLD")
	c.Conversation.DefaultMaxCallDuration = mustDuration("MAX_CALL_DURATION")
	c.Conversation.MaxConcurrentCalls = optInt("MAX_CONCURRENT_CALLS")
	c.Conversation.MaxConcurrentCampaigns = optInt("MAX_CONCURRENT_CAMPAIGNS")
	c.Conversation.IntentsFile = strings.TrimSpace(os.Getenv("INTENTS_FILE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			// Allowed values are enforced below.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		// Default: longer-lived refresh tokens.
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.IsProduction() {
		if c.Telephony.SIPDomain == "" {
			errs = append(errs, errors.New("TELEPHONY_SIP_DOMAIN is required in production"))
		}
		if c.Telephony.GatewayURL == "" {
			errs = append(errs, errors.New("TELEPHONY_GATEWAY_URL is required in production"))
		}
	}

	if c.Conversation.ClarifyThreshold == 0 {
		c.Conversation.ClarifyThreshold = 80
	}
	if c.Conversation.ClarifyThreshold < 1 || c.Conversation.ClarifyThreshold > 100 {
		errs = append(errs, fmt.Errorf("CLARIFY_THRESHOLD must be in 1..100, got %d", c.Conversation.ClarifyThreshold))
	}
	if c.Conversation.DefaultMaxCallDuration == 0 {
		c.Conversation.DefaultMaxCallDuration = 5 * time.Minute
	}
	if c.Conversation.DefaultMaxCallDuration < time.Minute || c.Conversation.DefaultMaxCallDuration > 30*time.Minute {
		errs = append(errs, fmt.Errorf("MAX_CALL_DURATION must be between 1m and 30m, got %s", c.Conversation.DefaultMaxCallDuration))
	}
	if c.Conversation.MaxConcurrentCalls == 0 {
		c.Conversation.MaxConcurrentCalls = 4
	}
	if c.Conversation.MaxConcurrentCalls < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_CALLS must be positive, got %d", c.Conversation.MaxConcurrentCalls))
	}
	if c.Conversation.MaxConcurrentCampaigns == 0 {
		c.Conversation.MaxConcurrentCampaigns = 2
	}
	if c.Conversation.MaxConcurrentCampaigns < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_CAMPAIGNS must be positive, got %d", c.Conversation.MaxConcurrentCampaigns))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt reads an optional integer env var; unset or malformed yields 0 and
// the default is applied in Validate.
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
