package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const cookieFilename = "api.cookie"

// generateToken creates a 32-byte random hex token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// writeCookie writes the auth token to <dataDir>/api.cookie with 0600 perms.
func writeCookie(dataDir, token string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, cookieFilename), []byte(token), 0o600)
}

// readCookie returns the token written by a running server.
func readCookie(dataDir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dataDir, cookieFilename))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func deleteCookie(dataDir string) {
	os.Remove(filepath.Join(dataDir, cookieFilename))
}

// requireAuth rejects requests that don't carry the server's Bearer token.
func requireAuth(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
