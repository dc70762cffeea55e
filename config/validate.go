// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug":   true,
	"verbose": true,
	"info":    true,
	"warn":    true,
	"error":   true,
}

// ValidateConfig checks every setting and returns all violations combined,
// or nil if cfg is valid.
func ValidateConfig(cfg Config) error {
	var err error
	if cfg.DataDir == "" {
		err = multierr.Append(err, ErrEmptyDataDir)
	}
	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidNetwork, cfg.Network))
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel))
	}
	if cfg.Confirmations == 0 {
		err = multierr.Append(err, ErrInvalidConfirmations)
	}
	return err
}
