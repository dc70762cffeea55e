// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

// Load errors.
var (
	ErrConfigNotFound    = errors.New("config: no operator config in data directory")
	ErrInvalidConfigLine = errors.New("config: expected key = value")
)

// Validation errors. ValidateConfig reports every one that applies.
var (
	ErrEmptyDataDir    = errors.New("config: datadir is required to locate gacha.db")
	ErrInvalidNetwork  = errors.New("config: network must name a BSV chain (mainnet, testnet, regtest)")
	ErrInvalidLogLevel = errors.New("config: loglevel must be debug, verbose, info, warn or error")

	// ErrInvalidConfirmations rejects a zero depth: the block at the
	// commitment height is already known when the pull is accepted.
	ErrInvalidConfirmations = errors.New("config: confirmations must be at least 1")
)
