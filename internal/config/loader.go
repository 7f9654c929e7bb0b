package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is stripped from environment variable names before mapping.
	EnvPrefix = "MDSEARCH_"
)

// nestedSections lists second-level config blocks. Environment variables
// address them as SECTION_BLOCK_FIELD.
var nestedSections = map[string][]string{
	"vectorstore": {"chromem", "qdrant", "s3vectors"},
}

// Options controls where configuration is read from.
type Options struct {
	// ConfigPath is the YAML file. Empty means ~/.config/mdsearch/config.yaml.
	ConfigPath string

	// SecretsPath is an optional secrets.toml overlay. Empty means none.
	SecretsPath string
}

// LoadWithFile loads configuration from a YAML file, then overrides with environment variables.
func LoadWithFile(configPath string) (*Config, error) {
	return Load(Options{ConfigPath: configPath})
}

// Load loads configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (MDSEARCH_SERVER_HTTP_PORT, MDSEARCH_VECTORSTORE_QDRANT_HOST, ...)
//  2. secrets.toml overlay ([aws] and [bedrock] tables)
//  3. YAML config file
//  4. Hardcoded defaults
//
// The YAML file must live under ~/.config/mdsearch/ or /etc/mdsearch/, must not
// be group or world writable, and must be smaller than 1MB. A missing file is
// not an error.
//
// Environment variables map to keys by dropping the prefix, lowercasing, and
// splitting the section off at the first underscore:
//
//	MDSEARCH_SERVER_HTTP_PORT          -> server.http_port
//	MDSEARCH_EMBEDDING_API_KEY         -> embedding.api_key
//	MDSEARCH_VECTORSTORE_PROVIDER      -> vectorstore.provider
//	MDSEARCH_VECTORSTORE_QDRANT_HOST   -> vectorstore.qdrant.host
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	configPath := opts.ConfigPath
	if configPath == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if opts.SecretsPath != "" {
		if err := loadSecrets(k, opts.SecretsPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps an environment variable name to a koanf key.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	for _, block := range nestedSections[section] {
		if rest, found := strings.CutPrefix(field, block+"_"); found {
			return section + "." + block + "." + rest
		}
	}
	return section + "." + field
}

// readConfigFile returns the file content, or nil if the file does not exist.
// The file is opened once and validated through its descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// DefaultConfigDir returns ~/.config/mdsearch.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mdsearch"), nil
}

// EnsureConfigDir creates the config directory with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath checks that path is inside an allowed directory.
// This runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so they cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	userDir, err := DefaultConfigDir()
	if err != nil {
		return err
	}

	for _, dir := range []string{userDir, "/etc/mdsearch"} {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/mdsearch/ or /etc/mdsearch/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
