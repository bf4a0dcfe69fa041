package docs

import (
	"regexp"
	"sort"
	"strings"
)

// Match is one inventory entry matching a query.
type Match struct {
	Key string
	URL string
}

// Find returns up to limit entries whose key contains the characters of
// query in order, case-insensitively. Tighter and earlier matches rank first.
func Find(query string, entries map[string]string, limit int) []Match {
	if query == "" {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("(?i)")
	for i, r := range query {
		if i > 0 {
			sb.WriteString(".*?")
		}
		sb.WriteString(regexp.QuoteMeta(string(r)))
	}
	re := regexp.MustCompile(sb.String())

	type scored struct {
		Match
		length, start int
	}
	var found []scored
	for key, url := range entries {
		loc := re.FindStringIndex(key)
		if loc == nil {
			continue
		}
		found = append(found, scored{Match{key, url}, loc[1] - loc[0], loc[0]})
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.length != b.length {
			return a.length < b.length
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.Key < b.Key
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]Match, len(found))
	for i, f := range found {
		out[i] = f.Match
	}
	return out
}
