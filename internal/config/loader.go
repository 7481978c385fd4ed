package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
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
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "NOTACLIN_"

	// PathEnv names the config file when LoadWithFile gets no path.
	PathEnv = EnvPrefix + "CONFIG"

	maxFileSize = 1 << 20
	systemDir   = "/etc/notaclin"
)

// LoadWithFile layers Default(), the YAML file at path and NOTACLIN_*
// variables, in increasing precedence, and validates the result.
//
// An empty path falls back to $NOTACLIN_CONFIG, then to
// ~/.config/notaclin/config.yaml. A missing file is skipped. An existing
// file must live under ~/.config/notaclin or /etc/notaclin, be mode 0600 or
// 0400 and be at most 1MiB.
//
// Variables map to keys by splitting on the first underscore after the
// prefix, so field names keep theirs:
//
//	NOTACLIN_SERVER_HTTP_PORT=7000            server.http_port
//	NOTACLIN_EXTRACTION_SIMILARITY_THRESHOLD  extraction.similarity_threshold
//	NOTACLIN_SERVER_CORS_ORIGINS=a,b          server.cors_origins: [a b]
func LoadWithFile(path string) (*Config, error) {
	path, err := configPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if raw != nil {
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("reading %s* variables: %w", EnvPrefix, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKey maps NOTACLIN_SECTION_FIELD_NAME to section.field_name.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if section, field, ok := strings.Cut(key, "_"); ok {
		return section + "." + field
	}
	return key
}

func configPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := checkLocation(path); err != nil {
		return "", err
	}
	return path, nil
}

// readConfigFile returns nil for a missing file. Mode and size are checked
// on the open descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := checkMode(path, info.Mode()); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(raw) > maxFileSize {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", path, maxFileSize)
	}
	return raw, nil
}

func checkMode(path string, mode fs.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if perm := mode.Perm(); perm != 0o600 && perm != 0o400 {
		return fmt.Errorf("%s has mode %v, want 0600 or 0400", path, perm)
	}
	return nil
}

// checkLocation requires path, with symlinks resolved, to sit under the
// user or system config directory.
func checkLocation(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	abs = resolveLinks(abs)

	userDir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{resolveLinks(userDir), systemDir} {
		if rel, err := filepath.Rel(dir, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file %s is outside %s and %s", path, userDir, systemDir)
}

// resolveLinks evaluates symlinks in p, or in its parent when p does not
// exist yet.
func resolveLinks(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	if r, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(r, filepath.Base(p))
	}
	return p
}

// DefaultConfigDir returns ~/.config/notaclin.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", "notaclin"), nil
}

// EnsureConfigDir creates DefaultConfigDir with mode 0700.
func EnsureConfigDir() error {
	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
