package cache

import (
	"fmt"
	"strings"
)

// globMeta are the characters DeleteByPattern interprets.
const globMeta = `*?[]\`

// TagKey builds "tag:part1:part2". Glob metacharacters in parts are replaced with '_' so a
// TagPattern delete never reaches outside its tag.
func TagKey(tag string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(tag)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.Map(func(r rune) rune {
			if strings.ContainsRune(globMeta, r) {
				return '_'
			}
			return r
		}, fmt.Sprint(p)))
	}
	return b.String()
}

// TagPattern matches every key built by TagKey for tag.
func TagPattern(tag string) string {
	return tag + ":*"
}
