package source

import (
	"regexp"
	"strings"
)

// The upstream sites never nest tables, so non-greedy table, row and
// cell patterns extract cleanly.
var (
	tableRe = regexp.MustCompile(`(?is)<table[^>]*>.*?</table>`)
	trRe    = regexp.MustCompile(`(?is)<tr[^>]*>.*?</tr>`)
	thRe    = regexp.MustCompile(`(?is)<th[^>]*>(.*?)</th>`)
	cellRe  = regexp.MustCompile(`(?is)<(td|th)([^>]*)>(.*?)</(?:td|th)>`)
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	hrefRe  = regexp.MustCompile(`(?is)<a[^>]+href\s*=\s*["']([^"']+)["']`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&#160;", " ",
)

var spaceRe = regexp.MustCompile(`\s+`)

// flatText strips tags, decodes common entities, and collapses
// whitespace. Matches what the sources' rendered cells need.
func flatText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// segmentedText is flatText with tag boundaries preserved as " | "
// separators, so multi-element cells ("Rink A<br>Rink B") keep their
// segment structure the way the wiki tables rely on.
func segmentedText(s string) string {
	s = tagRe.ReplaceAllString(s, "|")
	var segs []string
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(spaceRe.ReplaceAllString(entityReplacer.Replace(part), " "))
		if part != "" {
			segs = append(segs, part)
		}
	}
	return strings.Join(segs, " | ")
}

// firstHref returns the first <a> href in an HTML fragment when it is
// an absolute http(s) link, or "". A leading wiki-internal link means
// the cell carries no external website.
func firstHref(s string) string {
	m := hrefRe.FindStringSubmatch(s)
	if m != nil && strings.HasPrefix(m[1], "http") {
		return m[1]
	}
	return ""
}
