package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}

	return nil
}

// sumPath is the pinned-hash sidecar next to a config file.
func sumPath(configPath string) string {
	return configPath + ".sum"
}

// WriteSum pins the current hash of configPath into its sidecar.
func WriteSum(configPath string) (string, error) {
	hash, err := ComputeBlake3Hash(configPath)
	if err != nil {
		return "", err
	}
	// Restrictive permissions: the sidecar is the tamper baseline.
	if err := os.WriteFile(sumPath(configPath), []byte(hash+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write sum file: %w", err)
	}
	return hash, nil
}

// verifyPinnedSum checks configPath against its sidecar, if one exists.
// A missing sidecar skips verification.
func verifyPinnedSum(configPath string) error {
	data, err := os.ReadFile(sumPath(configPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sum file: %w", err)
	}

	expected := strings.TrimSpace(string(data))
	if err := VerifyFileHash(configPath, expected); err != nil {
		return fmt.Errorf("config verification failed: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: overviewd config lock", err)
	}
	return nil
}
