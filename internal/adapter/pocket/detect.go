package pocket

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/emrgen/mediahub/internal/adapter"
	"github.com/emrgen/mediahub/internal/resource"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

// Canonical normalizes a web URL so that trivially different spellings of a
// page share one identity. It returns false for anything that is not an
// absolute http(s) URL.
func Canonical(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), ".,;:!?)"))
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = encodeSorted(q)
	return u.String(), true
}

func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func detect(text string) []adapter.Match {
	var out []adapter.Match
	for _, raw := range urlPattern.FindAllString(text, -1) {
		if u, ok := Canonical(raw); ok {
			out = append(out, adapter.Match{Kind: resource.KindWebpage, URI: u, Generic: true})
		}
	}
	return adapter.UniqueMatches(out)
}
