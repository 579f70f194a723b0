package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
)

// query parameters that only carry campaign tracking and never change the article
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"utm_name":     {},
	"gclid":        {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
	"mc_cid":       {},
	"mc_eid":       {},
}

// CanonicalURL normalises raw for identity purposes: whitespace is trimmed,
// scheme and host are lower-cased, default ports and fragments are dropped,
// the path is cleaned, tracking parameters are removed and the remaining
// query is sorted. Path and query values keep their case. A missing scheme
// defaults to https.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	u, err := parseLoose(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u.Scheme, u.Host)
	if u.Host == "" {
		return "", errors.New("url missing host")
	}
	u.Path = canonicalPath(u.Path)
	u.RawPath = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = canonicalQuery(u.Query())
	return u.String(), nil
}

// CanonicalOrTrimmed returns the canonical form of raw, or raw without
// surrounding whitespace when it cannot be canonicalised.
func CanonicalOrTrimmed(raw string) string {
	if c, err := CanonicalURL(raw); err == nil {
		return c
	}
	return strings.TrimSpace(raw)
}

// Fingerprint is the hex SHA-256 of CanonicalOrTrimmed(raw). It never fails, so
// every item gets a stable identity even when its link is malformed.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(CanonicalOrTrimmed(raw)))
	return hex.EncodeToString(sum[:])
}

func parseLoose(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "" || u.Host != "" {
		return u, nil
	}
	if strings.HasPrefix(raw, "//") {
		return url.Parse("https:" + raw)
	}
	return url.Parse("https://" + raw)
}

func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, found := strings.Cut(host, ":")
	if !found {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return h
	}
	return host
}

func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	// keep an explicit trailing slash on non-root paths
	if cleaned != "/" && strings.HasSuffix(p, "/") {
		cleaned += "/"
	}
	return cleaned
}

func canonicalQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, drop := trackingParams[strings.ToLower(k)]; drop {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), q[k]...)
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}
