package vars

import (
	"math"
	"strings"
)

// Name fragments that mark a variable as sensitive regardless of value.
var sensitiveFragments = []string{
	"API_KEY", "APIKEY", "TOKEN", "PASSWORD", "PASSWD",
	"SECRET", "PRIVATE_KEY", "ACCESS_KEY", "CREDENTIAL",
}

// entropyThreshold is the Shannon entropy (bits per character) above which
// a value looks like generated key material rather than prose or a path.
const entropyThreshold = 3.5

// minEntropyLen keeps short values like "true" or port numbers from being
// flagged; entropy estimates are meaningless on a handful of characters.
const minEntropyLen = 16

// Sensitive reports whether an entry looks like a credential, either by
// its name or by the randomness of its value. The env dump asks for
// confirmation before persisting anything sensitive to disk.
func Sensitive(name, value string) bool {
	upper := strings.ToUpper(name)
	for _, frag := range sensitiveFragments {
		if strings.Contains(upper, frag) {
			return true
		}
	}
	return len(value) >= minEntropyLen && shannonEntropy(value) > entropyThreshold
}

// SensitiveNames returns the names of the store's current values that
// Sensitive flags, in sorted-snapshot-independent log order.
func SensitiveNames(s *Store) []string {
	seen := map[string]bool{}
	var out []string
	snap := s.Snapshot()
	for _, e := range s.Entries() {
		current, ok := snap[e.Name]
		if !ok || current != e.Value || seen[e.Name] {
			continue
		}
		if Sensitive(e.Name, e.Value) {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := map[rune]int{}
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var h float64
	for _, n := range counts {
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
