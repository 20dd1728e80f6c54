package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached query response.
type Key struct {
	raw string
}

// KeyForURL derives the cache key for a query URL. Query parameters are
// sorted so that equivalent URLs with differently ordered parameters share
// one entry.
//
// Format: harvest:<host><path>?a=1&b=2
func KeyForURL(rawURL string) Key {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Unparseable URLs still get a deterministic key.
		return Key{raw: "harvest:" + rawURL}
	}

	var b strings.Builder
	b.WriteString("harvest:")
	b.WriteString(u.Host)
	b.WriteString(u.Path)

	query := u.Query()
	if len(query) > 0 {
		names := make([]string, 0, len(query))
		for name := range query {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteByte('?')
		for i, name := range names {
			values := query[name]
			sort.Strings(values)
			for j, value := range values {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(name)
				b.WriteByte('=')
				b.WriteString(value)
			}
		}
	}

	return Key{raw: b.String()}
}

// String returns the Redis key string.
func (k Key) String() string {
	return k.raw
}
