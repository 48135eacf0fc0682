package utils

import (
	"strconv"
	"strings"
)

// BuildArticlesListCacheKey makes the cache key for the public published
// listing. Version the prefix when the response shape changes.
func BuildArticlesListCacheKey(limit, offset int, tag, query *string) string {
	tg := ""
	if tag != nil {
		tg = strings.ToLower(strings.TrimSpace(*tag))
	}
	q := ""
	if query != nil {
		q = strings.ToLower(strings.TrimSpace(*query))
	}

	return "articles:list:v1:limit=" + strconv.Itoa(limit) +
		":offset=" + strconv.Itoa(offset) +
		":tag=" + tg +
		":q=" + q
}

// SlugCandidate appends the dedupe counter the way slugs are minted:
// base, base-1, base-2 and so on.
func SlugCandidate(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
