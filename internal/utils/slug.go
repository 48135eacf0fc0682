package utils

import "strings"

// Slugify turns a title into a URL slug: lowercase, alphanumerics kept,
// everything else collapsed into single dashes.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	prevDash := true // suppress leading dashes

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
