// Package anonymize turns host-supplied strings into salt-keyed
// hashes so raw values never leave the device, while remaining stable
// within a single salt rotation window.
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/settings"
)

// Utf8 returns the lowercase hex SHA-256 digest of salt||s, where salt
// is the settings' current rotating value. The empty string always
// maps to the empty string. A salt-fetch failure is logged and
// returned to the caller.
func Utf8(logger logx.Logger, s *settings.Settings, value string) (string, error) {
	if value == "" {
		return "", nil
	}

	salt, err := s.GetSalt()
	if err != nil {
		logger.Error("anonymize: failed to fetch salt", map[string]any{"error": err.Error()})
		return "", err
	}

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}
