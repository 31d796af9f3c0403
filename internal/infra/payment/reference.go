package payment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewReference mints the canonical transaction reference in the form
// <namespace>-<serviceType>-<serviceId>-<unix-millis>-<random>, e.g.
// "phylee-Course-group-1-1719849600123-9f2c". The reference is the ledger's
// natural key and is never reused. Every character comes from [A-Za-z0-9-=.],
// the strictest charset among the configured providers, so the same string
// round-trips unchanged through checkout, webhooks and redirect callbacks.
// The random tail keeps same-millisecond purchases of one service distinct.
func NewReference(namespace, serviceType, serviceID string, now time.Time) string {
	var tail [2]byte
	_, _ = rand.Read(tail[:])
	return fmt.Sprintf("%s-%s-%s-%d-%s",
		sanitizeReference(namespace),
		sanitizeReference(serviceType),
		sanitizeReference(serviceID),
		now.UnixMilli(),
		hex.EncodeToString(tail[:]),
	)
}

// sanitizeReference strips characters outside [A-Za-z0-9-=.]. Underscores
// become hyphens first so a separator survives in a recognizable form. A
// reference minted by NewReference passes through unchanged.
func sanitizeReference(ref string) string {
	ref = strings.ReplaceAll(ref, "_", "-")
	var b strings.Builder
	b.Grow(len(ref))
	for _, c := range ref {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '=', c == '.':
			b.WriteRune(c)
		}
	}
	return b.String()
}
