package audit

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/efs-sdk/accessmanager/internal/core"
)

var _ core.Fingerprinter = Fingerprint

// Fingerprint identifies a SAS token in logs and audit entries without revealing it.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(hash[:12])
}
