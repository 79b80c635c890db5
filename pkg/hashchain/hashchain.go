// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashchain implements the append-only, tamper-evident linkage
// between settlement records: each record's hash covers the previous
// record's hash plus its own canonical payload.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/atmx/settlement-oracle/pkg/canon"
)

// Hash computes the hex-encoded SHA-256 digest of previousHash || canonical(payload).
// previousHash is omitted from the input entirely when it is empty (the
// genesis record).
func Hash(payload any, previousHash string) (string, error) {
	body, err := canon.JSON(payload)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if previousHash != "" {
		h.Write([]byte(previousHash))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the hash of payload chained to previousHash and compares
// it against want.
func Verify(payload any, previousHash, want string) (bool, error) {
	got, err := Hash(payload, previousHash)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
