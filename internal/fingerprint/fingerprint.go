// Package fingerprint computes the change-detection digest for scraped rows.
// The same upstream row always produces the same digest, which turns
// re-scrapes into incremental work.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Compute returns the 32-char lowercase hex digest of a scraped row. The
// payload is "<source_id>|<raw_name>|<raw_address>" lowercased, with
// whitespace trimmed from the whole payload only, never per field.
func Compute(sourceID int, rawName, rawAddress string) string {
	payload := fmt.Sprintf("%d|%s|%s", sourceID, rawName, rawAddress)
	payload = strings.TrimSpace(strings.ToLower(payload))
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
