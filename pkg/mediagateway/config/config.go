// Package config loads gateway configuration from the environment and wires
// the configured store, verifier, limiter, and grant issuer into a
// mediagateway.Service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/identity"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/ratelimit"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/signing"
	memorystore "github.com/meridianworks/media-gateway/pkg/mediagateway/storage/memory"
	remotestore "github.com/meridianworks/media-gateway/pkg/mediagateway/storage/remote"
	s3store "github.com/meridianworks/media-gateway/pkg/mediagateway/storage/s3"
)

// ServerConfig represents server configuration for the media gateway
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Store selects the media store backend: "memory", "remote", or "s3"
	Store string `env:"MEDIA_STORE" env-default:"memory"`

	Remote    RemoteConfig
	S3        S3Config
	Identity  IdentityConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig

	// ApiKeySHA256 optionally gates machine callers behind an API key
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:""`
}

// RemoteConfig configures the managed media provider backend
type RemoteConfig struct {
	BaseURL        string `env:"MEDIA_PROVIDER_URL" env-default:""`
	APIKey         string `env:"MEDIA_PROVIDER_API_KEY" env-default:""`
	APISecret      string `env:"MEDIA_PROVIDER_API_SECRET" env-default:""`
	TimeoutSeconds int    `env:"MEDIA_PROVIDER_TIMEOUT_SECONDS" env-default:"10"`
}

// S3Config configures the S3-compatible backend
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:""`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
}

// IdentityConfig configures bearer-token verification.
// Mode is "provider" (resolve tokens at an external identity provider) or
// "jwt" (verify locally-issued session tokens).
type IdentityConfig struct {
	Mode             string `env:"IDENTITY_MODE" env-default:"provider"`
	ProviderEndpoint string `env:"IDENTITY_PROVIDER_URL" env-default:""`
	JWTSecret        string `env:"IDENTITY_JWT_SECRET" env-default:""`
}

// UploadConfig configures signed upload grants
type UploadConfig struct {
	SigningSecret string `env:"UPLOAD_SIGNING_SECRET" env-default:""`
	AccountID     string `env:"UPLOAD_ACCOUNT_ID" env-default:""`
	DefaultFolder string `env:"UPLOAD_DEFAULT_FOLDER" env-default:"uploads"`
}

// RateLimitConfig configures the delete-asset rate limit
type RateLimitConfig struct {
	Enabled          bool `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	DeleteAssetLimit int  `env:"RATE_LIMIT_DELETE_ASSET" env-default:"10"`
	WindowSeconds    int  `env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
}

// Load reads configuration from the environment and validates it.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration. Missing credentials for a
// selected backend or verifier are a hard error, never a silent default.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Store {
	case "memory":
	case "remote":
		if c.Remote.BaseURL == "" || c.Remote.APIKey == "" || c.Remote.APISecret == "" {
			return errors.New("remote store requires MEDIA_PROVIDER_URL, MEDIA_PROVIDER_API_KEY, and MEDIA_PROVIDER_API_SECRET")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 store requires AWS_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown media store backend: %q", c.Store)
	}

	switch c.Identity.Mode {
	case "provider":
		if c.Identity.ProviderEndpoint == "" {
			return errors.New("provider identity mode requires IDENTITY_PROVIDER_URL")
		}
	case "jwt":
		if c.Identity.JWTSecret == "" {
			return errors.New("jwt identity mode requires IDENTITY_JWT_SECRET")
		}
	default:
		return fmt.Errorf("unknown identity mode: %q", c.Identity.Mode)
	}

	return nil
}

// BuildStore constructs the configured media store backend.
func (c *ServerConfig) BuildStore() (mediagateway.MediaStore, error) {
	switch c.Store {
	case "memory":
		return memorystore.New(), nil
	case "remote":
		return remotestore.New(remotestore.Config{
			BaseURL:   c.Remote.BaseURL,
			APIKey:    c.Remote.APIKey,
			APISecret: c.Remote.APISecret,
			Timeout:   time.Duration(c.Remote.TimeoutSeconds) * time.Second,
		})
	case "s3":
		return s3store.New(s3store.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown media store backend: %q", c.Store)
	}
}

// BuildVerifier constructs the configured identity verifier.
func (c *ServerConfig) BuildVerifier() (mediagateway.Verifier, error) {
	switch c.Identity.Mode {
	case "provider":
		return identity.NewProvider(c.Identity.ProviderEndpoint)
	case "jwt":
		return identity.NewJWT(c.Identity.JWTSecret)
	default:
		return nil, fmt.Errorf("unknown identity mode: %q", c.Identity.Mode)
	}
}

// BuildGateway wires the configured components into a gateway service.
func (c *ServerConfig) BuildGateway() (mediagateway.Service, error) {
	store, err := c.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build media store: %w", err)
	}

	verifier, err := c.BuildVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build identity verifier: %w", err)
	}

	limiter := ratelimit.New()
	if !c.RateLimit.Enabled {
		limiter = ratelimit.NewDisabled()
	}

	options := []mediagateway.Option{
		mediagateway.WithStore(store),
		mediagateway.WithVerifier(verifier),
		mediagateway.WithRateLimiter(limiter),
		mediagateway.WithDeleteAssetPolicy(
			c.RateLimit.DeleteAssetLimit,
			time.Duration(c.RateLimit.WindowSeconds)*time.Second,
		),
		mediagateway.WithDefaultUploadFolder(c.Upload.DefaultFolder),
	}

	// The issuer is wired only when signing is fully configured; the gateway
	// fails closed on grant requests otherwise.
	if c.Upload.SigningSecret != "" && c.Upload.AccountID != "" {
		options = append(options, mediagateway.WithGrantIssuer(
			signing.New(c.Upload.SigningSecret, c.Upload.AccountID),
		))
	}

	return mediagateway.New(options...)
}
