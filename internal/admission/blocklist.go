package admission

import (
	"strings"

	"github.com/emiago/sipgo/sip"
)

// Blocklist holds blocked URIs in exact ("alice@example.com") and domain
// ("@example.com") forms.
type Blocklist struct {
	entries map[string]bool
}

// NewBlocklist creates a block-list from the configured entries.
func NewBlocklist(uris []string) *Blocklist {
	b := &Blocklist{entries: make(map[string]bool)}
	for _, u := range uris {
		b.Add(u)
	}
	return b
}

// Add inserts a blocked URI or @domain entry.
func (b *Blocklist) Add(uri string) {
	if n := normalizeEntry(uri); n != "" {
		b.entries[n] = true
	}
}

// Remove deletes an entry. Removing an absent entry is a no-op.
func (b *Blocklist) Remove(uri string) {
	delete(b.entries, normalizeEntry(uri))
}

// Len returns the number of entries.
func (b *Blocklist) Len() int {
	return len(b.entries)
}

// MatchesURI reports whether the exact URI is blocked.
func (b *Blocklist) MatchesURI(uri string) bool {
	user, host, ok := splitURI(uri)
	if !ok {
		return false
	}
	return b.entries[user+"@"+host]
}

// MatchesDomain reports whether the URI's domain is blocked.
func (b *Blocklist) MatchesDomain(uri string) bool {
	_, host, ok := splitURI(uri)
	if !ok {
		return false
	}
	return b.entries["@"+host]
}

// normalizeEntry lowercases and strips the sip: scheme from a configured
// entry, keeping the @domain form intact.
func normalizeEntry(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.TrimPrefix(raw, "sip:")
	raw = strings.TrimPrefix(raw, "sips:")
	if raw == "" || raw == "@" {
		return ""
	}
	if strings.HasPrefix(raw, "@") {
		return raw
	}
	user, host, ok := splitURI(raw)
	if !ok {
		return raw
	}
	return user + "@" + host
}

// splitURI parses an address into user and host parts. Bare addresses
// without a scheme are accepted.
func splitURI(raw string) (user, host string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	if !strings.HasPrefix(raw, "sip:") && !strings.HasPrefix(raw, "sips:") {
		raw = "sip:" + raw
	}

	var uri sip.Uri
	if err := sip.ParseUri(raw, &uri); err != nil {
		return "", "", false
	}
	return strings.ToLower(uri.User), strings.ToLower(uri.Host), true
}
