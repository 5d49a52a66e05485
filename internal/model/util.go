package model

import (
	"crypto/rand"
	"encoding/base64"
)

// generateSecureToken creates a secure random token string
func generateSecureToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		// crypto/rand failing means the host is broken
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
