package docxjson

import (
	"regexp"
	"strings"
)

// DefaultStringsToRemove lists the markup fragments stripped from rendered
// HTML before extraction.
var DefaultStringsToRemove = []string{
	"\r\n",
	"<sup>",
	"</sup>",
	"&#x200e;",
	"<br/>",
	"<br />",
}

var multiSpaceRe = regexp.MustCompile(` {2,}`)

// Clean removes every literal occurrence of each string in remove, in order,
// then deletes every run of two or more spaces. Runs are deleted, not
// collapsed to a single space.
func Clean(html string, remove []string) string {
	for _, s := range remove {
		if s == "" {
			continue
		}
		html = strings.ReplaceAll(html, s, "")
	}
	return multiSpaceRe.ReplaceAllString(html, "")
}
