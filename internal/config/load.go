package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// envFiles are loaded in order; values already in the environment win.
var envFiles = []string{".env", ".env.local"}

// Load reads the configuration at path on top of Default. A missing file
// yields the defaults. ${VAR} references are expanded from the environment
// after .env files are loaded.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("No configuration file; using defaults", "path", path)
	case err != nil:
		return nil, ferrors.ConfigError("failed to read config file").
			WithCause(err).WithContext("path", path).Build()
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.ConfigError("failed to parse config file").
				WithCause(err).WithContext("path", path).Build()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("Failed to load env file", "path", f, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", f)
	}
}

// normalize case-folds enumerations and fills fields cleared by the file.
func (c *Config) normalize() error {
	level, err := logLevelNormalizer.normalize(string(c.Logging.Level))
	if err != nil {
		return ferrors.ValidationError("logging.level: " + err.Error()).Build()
	}
	format, err := logFormatNormalizer.normalize(string(c.Logging.Format))
	if err != nil {
		return ferrors.ValidationError("logging.format: " + err.Error()).Build()
	}
	c.Logging.Level, c.Logging.Format = level, format

	def := Default()
	if c.Paths.Root == "" {
		c.Paths.Root = def.Paths.Root
	}
	if c.Render.RootPath == "" {
		c.Render.RootPath = def.Render.RootPath
	}
	if c.Serve.Host == "" {
		c.Serve.Host = def.Serve.Host
	}
	if c.Reload.Subject == "" {
		c.Reload.Subject = def.Reload.Subject
	}
	return nil
}

// Init writes the default configuration to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.NewError(ferrors.CategoryAlreadyExists, "configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return ferrors.InternalError("failed to marshal default config").WithCause(err).Build()
	}
	header := []byte("# sitebuilder configuration. ${VAR} references are expanded from the environment.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return ferrors.FileSystemError("failed to write config file").
			WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
