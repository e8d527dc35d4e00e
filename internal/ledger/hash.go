package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRFQ separates draft fingerprints from any other hash in the system.
// The version suffix allows a future algorithm migration.
const DomainRFQ = "quotedesk/rfq/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable content hash of an RFQ draft.
// Nil and empty collections hash the same.
func Fingerprint(r RFQ) (string, error) {
	canonical, err := MarshalCanonical(r.Clone())
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainRFQ, canonical), nil
}
