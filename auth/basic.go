package auth

import (
	"encoding/base64"
	"strings"
)

// ParseBasicAuth extracts email and password from an Authorization header
// value using the Basic scheme. Any malformed value, or an empty email or
// password, yields ErrUnauthenticated.
func ParseBasicAuth(header string) (email, password string, err error) {
	scheme, encoded, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", ErrUnauthenticated
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", ErrUnauthenticated
	}

	email, password, ok = strings.Cut(string(decoded), ":")
	if !ok || email == "" || password == "" {
		return "", "", ErrUnauthenticated
	}
	return email, password, nil
}
