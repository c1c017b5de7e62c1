package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Key returns a stable fingerprint for a payload, used to suppress the
// double-fires TradingView produces when an alert triggers on bar close and
// again on confirmation. Keys are order-independent: the same fields always
// hash the same.
func Key(p Payload) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(Str(p[k])))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
