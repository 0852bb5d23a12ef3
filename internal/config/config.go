// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Mode names accepted in the config file.
const (
	ContentModeStructured = "structured"
	ContentModeFlattened  = "flattened"

	MediaModeInline   = "inline"
	MediaModeImageKit = "imagekit"
	MediaModeS3       = "s3"

	CredentialSourceKeyring = "keyring"
	CredentialSourceEnv     = "env"
	CredentialSourceStatic  = "static"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete orchat configuration.
type Config struct {
	// OpenRouter request settings
	OpenRouter OpenRouterConfig `toml:"openrouter" json:"openrouter"`

	// Where the API key comes from
	Credentials CredentialsConfig `toml:"credentials" json:"credentials"`

	// How selected images become content items
	Media MediaConfig `toml:"media" json:"media"`

	// Transcript persistence
	Storage StorageConfig `toml:"storage" json:"storage"`

	// HTTP API
	Server ServerConfig `toml:"server" json:"server"`

	// Interactive chat behavior
	Chat ChatConfig `toml:"chat" json:"chat"`
}

// OpenRouterConfig contains completion client settings.
type OpenRouterConfig struct {
	// Endpoint is the chat completions URL
	Endpoint string `toml:"endpoint" json:"endpoint"`
	// Model is the model id selected at startup
	Model string `toml:"model" json:"model"`
	// ContentMode is "structured" (part arrays) or "flattened" (plain text, images replaced)
	ContentMode string `toml:"content_mode" json:"content_mode"`
	// SystemPrompt is sent ahead of every history
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Referer is sent as HTTP-Referer
	Referer string `toml:"referer" json:"referer"`
	// Title is sent as X-Title
	Title string `toml:"title" json:"title"`
}

// CredentialsConfig selects the API key source.
type CredentialsConfig struct {
	// Source is "keyring", "env" or "static"
	Source string `toml:"source" json:"source"`
	// EnvVar is the variable read when Source is "env"
	EnvVar string `toml:"env_var" json:"env_var"`
	// APIKey is the shared key used when Source is "static"
	APIKey string `toml:"api_key" json:"api_key"`
	// KeyringService is the keyring service name when Source is "keyring"
	KeyringService string `toml:"keyring_service" json:"keyring_service"`
}

// MediaConfig selects the image encoder.
type MediaConfig struct {
	// Mode is "inline", "imagekit" or "s3"
	Mode     string         `toml:"mode" json:"mode"`
	ImageKit ImageKitConfig `toml:"imagekit" json:"imagekit"`
	S3       S3Config       `toml:"s3" json:"s3"`
}

// ImageKitConfig configures the ImageKit uploader.
type ImageKitConfig struct {
	Endpoint   string `toml:"endpoint" json:"endpoint"`
	PrivateKey string `toml:"private_key" json:"private_key"`
}

// S3Config configures the S3 uploader. Credentials come from the AWS default chain.
type S3Config struct {
	Bucket        string `toml:"bucket" json:"bucket"`
	Region        string `toml:"region" json:"region"`
	Prefix        string `toml:"prefix" json:"prefix"`
	PublicBaseURL string `toml:"public_base_url" json:"public_base_url"`
	Endpoint      string `toml:"endpoint" json:"endpoint"`
	PathStyle     bool   `toml:"path_style" json:"path_style"`
}

// StorageConfig controls transcript persistence.
type StorageConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Dir overrides the transcript directory (empty = XDG data dir)
	Dir string `toml:"dir" json:"dir"`
	// MaxTranscripts limits stored transcripts (0 = unlimited)
	MaxTranscripts int `toml:"max_transcripts" json:"max_transcripts"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// ChatConfig contains conversation settings.
type ChatConfig struct {
	// Greeting opens new conversations with an assistant welcome message
	Greeting bool `toml:"greeting" json:"greeting"`
	// GreetingText overrides the welcome message
	GreetingText string `toml:"greeting_text" json:"greeting_text"`
	// RenderMarkdown renders replies as Markdown in the terminal
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with all defaults set.
func Default() *Config {
	return &Config{
		OpenRouter: OpenRouterConfig{
			Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
			Model:        "anthropic/claude-3-5-sonnet",
			ContentMode:  ContentModeStructured,
			SystemPrompt: "You are a helpful assistant that can also analyze images.",
			Referer:      "http://localhost",
			Title:        "OpenRouter Chat App",
		},
		Credentials: CredentialsConfig{
			Source:         CredentialSourceKeyring,
			EnvVar:         "OPENROUTER_API_KEY",
			KeyringService: "orchat",
		},
		Media: MediaConfig{
			Mode: MediaModeInline,
			ImageKit: ImageKitConfig{
				Endpoint: "https://upload.imagekit.io/api/v1/files/upload",
			},
		},
		Storage: StorageConfig{
			Enabled:        true,
			MaxTranscripts: 100,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Chat: ChatConfig{
			Greeting:       true,
			RenderMarkdown: true,
		},
	}
}

// SetDefaults fills blank values that must never be blank.
func (c *Config) SetDefaults() {
	d := Default()

	if c.OpenRouter.Endpoint == "" {
		c.OpenRouter.Endpoint = d.OpenRouter.Endpoint
	}
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = d.OpenRouter.Model
	}
	if c.OpenRouter.ContentMode == "" {
		c.OpenRouter.ContentMode = d.OpenRouter.ContentMode
	}
	if c.OpenRouter.SystemPrompt == "" {
		c.OpenRouter.SystemPrompt = d.OpenRouter.SystemPrompt
	}
	if c.OpenRouter.Referer == "" {
		c.OpenRouter.Referer = d.OpenRouter.Referer
	}
	if c.OpenRouter.Title == "" {
		c.OpenRouter.Title = d.OpenRouter.Title
	}

	if c.Credentials.Source == "" {
		c.Credentials.Source = d.Credentials.Source
	}
	if c.Credentials.EnvVar == "" {
		c.Credentials.EnvVar = d.Credentials.EnvVar
	}
	if c.Credentials.KeyringService == "" {
		c.Credentials.KeyringService = d.Credentials.KeyringService
	}

	if c.Media.Mode == "" {
		c.Media.Mode = d.Media.Mode
	}
	if c.Media.ImageKit.Endpoint == "" {
		c.Media.ImageKit.Endpoint = d.Media.ImageKit.Endpoint
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}

	c.OpenRouter.ContentMode = strings.ToLower(strings.TrimSpace(c.OpenRouter.ContentMode))
	c.Credentials.Source = strings.ToLower(strings.TrimSpace(c.Credentials.Source))
	c.Media.Mode = strings.ToLower(strings.TrimSpace(c.Media.Mode))
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the orchat configuration directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "orchat")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the default config file, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		return LoadFromPath(path)
	}

	cfg := Default()
	return finish(cfg)
}

// LoadFromPath loads configuration from a specific TOML file with full validation.
// Keys absent from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// ReadFile decodes path over the defaults without applying environment
// overrides or validation. Use it when the result will be written back.
func ReadFile(path string) (*Config, error) {
	cfg := Default()

	// SECURITY: Config may hold keys; tighten permissions if needed
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("failed to load config from %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default path.
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo writes cfg as TOML to path.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# orchat configuration file\n")
	buf.WriteString("# Generated by orchat - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// Ensure permissions are correct even if the file already existed
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// OpenRouter
	if err := validateHTTPURL(c.OpenRouter.Endpoint); err != nil {
		add("openrouter.endpoint", "%v", err)
	}
	if strings.TrimSpace(c.OpenRouter.Model) == "" {
		add("openrouter.model", "must not be empty")
	}
	switch c.OpenRouter.ContentMode {
	case ContentModeStructured, ContentModeFlattened:
	default:
		add("openrouter.content_mode", "invalid mode '%s', must be one of: %s, %s",
			c.OpenRouter.ContentMode, ContentModeStructured, ContentModeFlattened)
	}

	// Credentials
	switch c.Credentials.Source {
	case CredentialSourceKeyring, CredentialSourceEnv:
	case CredentialSourceStatic:
		if strings.TrimSpace(c.Credentials.APIKey) == "" {
			add("credentials.api_key", "required when source is 'static'")
		}
	default:
		add("credentials.source", "invalid source '%s', must be one of: %s, %s, %s",
			c.Credentials.Source, CredentialSourceKeyring, CredentialSourceEnv, CredentialSourceStatic)
	}

	// Media
	switch c.Media.Mode {
	case MediaModeInline:
	case MediaModeImageKit:
		if strings.TrimSpace(c.Media.ImageKit.PrivateKey) == "" {
			add("media.imagekit.private_key", "required when mode is 'imagekit'")
		}
		if err := validateHTTPURL(c.Media.ImageKit.Endpoint); err != nil {
			add("media.imagekit.endpoint", "%v", err)
		}
	case MediaModeS3:
		if strings.TrimSpace(c.Media.S3.Bucket) == "" {
			add("media.s3.bucket", "required when mode is 's3'")
		}
		if c.Media.S3.PublicBaseURL != "" {
			if err := validateHTTPURL(c.Media.S3.PublicBaseURL); err != nil {
				add("media.s3.public_base_url", "%v", err)
			}
		}
		if c.Media.S3.Endpoint != "" {
			if err := validateHTTPURL(c.Media.S3.Endpoint); err != nil {
				add("media.s3.endpoint", "%v", err)
			}
		}
	default:
		add("media.mode", "invalid mode '%s', must be one of: %s, %s, %s",
			c.Media.Mode, MediaModeInline, MediaModeImageKit, MediaModeS3)
	}

	// Storage
	if c.Storage.MaxTranscripts < 0 {
		add("storage.max_transcripts", "must not be negative")
	}

	// Server
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid address '%s': %v", c.Server.Addr, err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ORCHAT_MODEL: overrides openrouter.model
//   - ORCHAT_CONTENT_MODE: overrides openrouter.content_mode
//   - ORCHAT_ENDPOINT: overrides openrouter.endpoint
//   - ORCHAT_CREDENTIAL_SOURCE: overrides credentials.source
//   - ORCHAT_MEDIA_MODE: overrides media.mode
//   - ORCHAT_IMAGEKIT_PRIVATE_KEY: overrides media.imagekit.private_key
//   - ORCHAT_SERVER_ADDR: overrides server.addr
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"ORCHAT_MODEL", &c.OpenRouter.Model},
		{"ORCHAT_CONTENT_MODE", &c.OpenRouter.ContentMode},
		{"ORCHAT_ENDPOINT", &c.OpenRouter.Endpoint},
		{"ORCHAT_CREDENTIAL_SOURCE", &c.Credentials.Source},
		{"ORCHAT_MEDIA_MODE", &c.Media.Mode},
		{"ORCHAT_IMAGEKIT_PRIVATE_KEY", &c.Media.ImageKit.PrivateKey},
		{"ORCHAT_SERVER_ADDR", &c.Server.Addr},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "media.s3.bucket").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "openrouter.model").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("field '%s' is a section, not a value", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, strings.ToLower(part))
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// IsSecretKey reports whether key holds a secret that must not be displayed.
func IsSecretKey(key string) bool {
	switch strings.ToLower(key) {
	case "credentials.api_key", "media.imagekit.private_key":
		return true
	}
	return false
}

// Clone creates a copy of the configuration. Config holds no reference types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts secrets so the output is safe to log.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Credentials.APIKey != "" {
		safe.Credentials.APIKey = "[REDACTED]"
	}
	if safe.Media.ImageKit.PrivateKey != "" {
		safe.Media.ImageKit.PrivateKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
