package newsletter

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the public archive slug from the subject and the send
// period, e.g. "Spring Season Opening!" in March 2026 becomes
// "spring-season-opening-2026-03".
func Slugify(subject string, period time.Time) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	s = slugStrip.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	if s == "" {
		s = "newsletter"
	}
	return s + "-" + period.Format("2006-01")
}

// slugSuffix returns a short random suffix for resolving slug collisions.
func slugSuffix() string {
	buf := make([]byte, 3)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
