// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.OpenRouter.ContentMode != ContentModeStructured {
		t.Errorf("ContentMode = %q, want structured", cfg.OpenRouter.ContentMode)
	}
	if cfg.Media.Mode != MediaModeInline {
		t.Errorf("Media.Mode = %q, want inline", cfg.Media.Mode)
	}
	if cfg.Credentials.Source != CredentialSourceKeyring {
		t.Errorf("Credentials.Source = %q, want keyring", cfg.Credentials.Source)
	}
	if cfg.OpenRouter.Model != "anthropic/claude-3-5-sonnet" {
		t.Errorf("Model = %q", cfg.OpenRouter.Model)
	}
}

func TestConfigPath(t *testing.T) {
	if !strings.HasSuffix(ConfigPath(), filepath.Join("orchat", "config.toml")) {
		t.Errorf("ConfigPath() = %q", ConfigPath())
	}
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[openrouter]
model = "openai/gpt-4o"
content_mode = "Flattened"

[media]
mode = "s3"

[media.s3]
bucket = "chat-images"
region = "eu-west-1"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.OpenRouter.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q", cfg.OpenRouter.Model)
	}
	if cfg.OpenRouter.ContentMode != ContentModeFlattened {
		t.Errorf("ContentMode = %q, want normalized flattened", cfg.OpenRouter.ContentMode)
	}
	if cfg.Media.S3.Bucket != "chat-images" {
		t.Errorf("Bucket = %q", cfg.Media.S3.Bucket)
	}
	if cfg.OpenRouter.Endpoint != Default().OpenRouter.Endpoint {
		t.Errorf("Endpoint default lost: %q", cfg.OpenRouter.Endpoint)
	}
	if !cfg.Storage.Enabled || !cfg.Chat.Greeting {
		t.Error("boolean defaults lost")
	}
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	path := writeConfig(t, "[openrouter]\nmodle = \"typo\"\n")
	if _, err := LoadFromPath(path); err == nil || !strings.Contains(err.Error(), "openrouter.modle") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := writeConfig(t, "[media]\nmode = \"imagekit\"\n")
	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidateErrors, got %T", err)
	}
	if len(verrs) != 1 || verrs[0].Field != "media.imagekit.private_key" {
		t.Errorf("errors = %v", verrs)
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on Windows")
	}
	path := writeConfig(t, "")
	os.Chmod(path, 0o644)

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.OpenRouter.Model = "google/gemini-1.5-pro"
	cfg.Storage.MaxTranscripts = 7
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.OpenRouter.Model != "google/gemini-1.5-pro" || loaded.Storage.MaxTranscripts != 7 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORCHAT_MODEL", "mistralai/mistral-large")
	t.Setenv("ORCHAT_CONTENT_MODE", "flattened")
	t.Setenv("ORCHAT_MEDIA_MODE", "imagekit")
	t.Setenv("ORCHAT_IMAGEKIT_PRIVATE_KEY", "private_abc")
	t.Setenv("ORCHAT_CREDENTIAL_SOURCE", "env")
	t.Setenv("ORCHAT_ENDPOINT", "http://localhost:9999/v1/chat/completions")
	t.Setenv("ORCHAT_SERVER_ADDR", ":9090")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	checks := map[string]string{
		"openrouter.model":           "mistralai/mistral-large",
		"openrouter.content_mode":    "flattened",
		"media.mode":                 "imagekit",
		"media.imagekit.private_key": "private_abc",
		"credentials.source":         "env",
		"openrouter.endpoint":        "http://localhost:9999/v1/chat/completions",
		"server.addr":                ":9090",
	}
	for key, want := range checks {
		got, err := cfg.Get(key)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("overridden config invalid: %v", err)
	}
}

func TestApplyEnvOverrides_BlankIgnored(t *testing.T) {
	t.Setenv("ORCHAT_MODEL", "  ")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.OpenRouter.Model != Default().OpenRouter.Model {
		t.Errorf("blank env var overrode model: %q", cfg.OpenRouter.Model)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad content mode", func(c *Config) { c.OpenRouter.ContentMode = "markdown" }, "openrouter.content_mode"},
		{"bad endpoint scheme", func(c *Config) { c.OpenRouter.Endpoint = "ftp://x/y" }, "openrouter.endpoint"},
		{"endpoint without host", func(c *Config) { c.OpenRouter.Endpoint = "https://" }, "openrouter.endpoint"},
		{"empty model", func(c *Config) { c.OpenRouter.Model = " " }, "openrouter.model"},
		{"bad credential source", func(c *Config) { c.Credentials.Source = "browser" }, "credentials.source"},
		{"static without key", func(c *Config) { c.Credentials.Source = CredentialSourceStatic }, "credentials.api_key"},
		{"bad media mode", func(c *Config) { c.Media.Mode = "ftp" }, "media.mode"},
		{"s3 without bucket", func(c *Config) { c.Media.Mode = MediaModeS3 }, "media.s3.bucket"},
		{"s3 bad base url", func(c *Config) {
			c.Media.Mode = MediaModeS3
			c.Media.S3.Bucket = "b"
			c.Media.S3.PublicBaseURL = "cdn.example.com"
		}, "media.s3.public_base_url"},
		{"negative max transcripts", func(c *Config) { c.Storage.MaxTranscripts = -1 }, "storage.max_transcripts"},
		{"bad server addr", func(c *Config) { c.Server.Addr = "localhost" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for %s in %v", tt.field, verrs)
			}
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	if got := (ValidateErrors{}).Error(); got != "no validation errors" {
		t.Errorf("empty = %q", got)
	}
	errs := ValidateErrors{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}
	if got := errs.Error(); got != "a: x; b: y" {
		t.Errorf("Error() = %q", got)
	}
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("media.s3.path_style", "true"); err != nil {
		t.Fatalf("Set bool failed: %v", err)
	}
	if !cfg.Media.S3.PathStyle {
		t.Error("path_style not set")
	}

	if err := cfg.Set("storage.max_transcripts", "25"); err != nil {
		t.Fatalf("Set int failed: %v", err)
	}
	if cfg.Storage.MaxTranscripts != 25 {
		t.Errorf("MaxTranscripts = %d", cfg.Storage.MaxTranscripts)
	}

	if err := cfg.Set("storage.max_transcripts", "many"); err == nil {
		t.Error("expected integer parse error")
	}
	if err := cfg.Set("openrouter", "x"); err == nil {
		t.Error("expected error setting a section")
	}
	if _, err := cfg.Get("openrouter.nope"); err == nil {
		t.Error("expected unknown field error")
	}
	if _, err := cfg.Get(""); err == nil {
		t.Error("expected empty key error")
	}
	if _, err := cfg.Get("server.addr.port"); err == nil {
		t.Error("expected error descending into a value")
	}
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	cfg := Default()
	for _, key := range keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %q not gettable: %v", key, err)
		}
	}
	for _, want := range []string{"openrouter.content_mode", "media.s3.bucket", "chat.greeting"} {
		found := false
		for _, k := range keys {
			if k == want {
				found = true
			}
		}
		if !found {
			t.Errorf("GetAllKeys missing %q", want)
		}
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Credentials.APIKey = "sk-or-very-secret"
	cfg.Media.ImageKit.PrivateKey = "private_very_secret"

	out := cfg.String()
	if strings.Contains(out, "very-secret") || strings.Contains(out, "very_secret") {
		t.Errorf("String() leaked a secret:\n%s", out)
	}
	if cfg.Credentials.APIKey != "sk-or-very-secret" {
		t.Error("String() modified the original")
	}
	if !IsSecretKey("credentials.api_key") || IsSecretKey("openrouter.model") {
		t.Error("IsSecretKey misclassified")
	}
}

func TestReadFile_IgnoresEnv(t *testing.T) {
	t.Setenv("ORCHAT_MODEL", "from/env")
	path := writeConfig(t, "[openrouter]\nmodel = \"from/file\"\n")

	raw, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if raw.OpenRouter.Model != "from/file" {
		t.Errorf("ReadFile Model = %q, want from/file", raw.OpenRouter.Model)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.OpenRouter.Model != "from/env" {
		t.Errorf("LoadFromPath Model = %q, want from/env", loaded.OpenRouter.Model)
	}
}
