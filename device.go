package authkit

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// deviceLabel names a new session. Callers do not supply device
// identity, so each login gets a generated desktop-style label.
func deviceLabel() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "DESKTOP-UNKNOWN"
	}
	return "DESKTOP-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
