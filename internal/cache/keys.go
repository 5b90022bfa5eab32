package cache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// BuildKey derives the canonical cache key for a query. Parameter names
// are sorted before hashing so equivalent queries with differently
// ordered parameters collide to the same key.
func BuildKey(kind string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}

	return kind + ":" + strconv.FormatUint(xxhash.Sum64String(sb.String()), 16)
}
