package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"archsketch/internal/domain"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex blake2b-256 digest of the specification's
// canonical JSON encoding. Equal specifications have equal fingerprints.
func Fingerprint(spec *domain.Specification) (string, error) {
	data, err := json.Marshal(spec.Clone())
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
