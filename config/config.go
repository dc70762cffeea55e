// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads libgacha-go operator settings from a key = value
// file, with GACHA_* environment variables taking precedence.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds operator settings.
type Config struct {
	DataDir           string `env:"GACHA_DATA_DIR"`
	Network           string `env:"GACHA_NETWORK"`
	LogLevel          string `env:"GACHA_LOG_LEVEL"`
	LogFile           string `env:"GACHA_LOG_FILE"`
	JournalPath       string `env:"GACHA_JOURNAL"`
	MaxSlotDifference uint64 `env:"GACHA_MAX_SLOT_DIFFERENCE"`
	Confirmations     uint64 `env:"GACHA_CONFIRMATIONS"`
}

const (
	defaultMaxSlotDifference = 20
	defaultConfirmations     = 6
)

// DefaultDataDir returns ~/.gacha, or .gacha when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gacha"
	}
	return filepath.Join(home, ".gacha")
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DataDir:           DefaultDataDir(),
		Network:           "regtest",
		LogLevel:          "info",
		MaxSlotDifference: defaultMaxSlotDifference,
		Confirmations:     defaultConfirmations,
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DBPath returns the engine database path inside cfg.DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "gacha.db")
}

// AuditPath returns JournalPath, defaulting to audit.db in DataDir.
func (c Config) AuditPath() string {
	if c.JournalPath != "" {
		return c.JournalPath
	}
	return filepath.Join(c.DataDir, "audit.db")
}

// LoadConfig reads path over DefaultConfig. Blank lines and lines starting
// with # are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := parseKeyValue(line)
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits on the first '='.
func parseKeyValue(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "journal":
		c.JournalPath = value
	case "maxslotdiff":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("maxslotdiff: %w", err)
		}
		c.MaxSlotDifference = n
	case "confirmations":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("confirmations: %w", err)
		}
		c.Confirmations = n
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Gacha Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "journal = %s\n", cfg.JournalPath)
	fmt.Fprintf(&b, "maxslotdiff = %d\n", cfg.MaxSlotDifference)
	fmt.Fprintf(&b, "confirmations = %d\n", cfg.Confirmations)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any GACHA_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}
