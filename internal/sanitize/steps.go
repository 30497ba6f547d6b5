package sanitize

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	boldRE       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	disclosureRE = regexp.MustCompile("analyzed the provided files|based on the `?`?\\s*file`?\\s*you provided,")
	bulletStarRE = regexp.MustCompile(`(?m)^([ \t]*)\*[ \t]+`)
	newlineRE    = regexp.MustCompile(`\r?\n`)
	linkRE       = regexp.MustCompile(`\[([^\]]+)\]\(([^\s()]+)\)`)
	tagRE        = regexp.MustCompile(`<[^>]*>`)
	dashRunRE    = regexp.MustCompile(`[\w-]*-{2,}[\w-]*`)
	disclaimerRE = regexp.MustCompile(regexp.QuoteMeta("Please note that this list is based on the provided CSV data."))
	greetingRE   = regexp.MustCompile(`Good day`)
)

const (
	lineBreak   = "<br />"
	bulletGlyph = "•"
)

func hideNames(names []string) func(string) string {
	if len(names) == 0 {
		return func(s string) string { return s }
	}
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, regexp.QuoteMeta(n))
	}
	re := regexp.MustCompile(strings.Join(quoted, "|"))
	return func(s string) string { return re.ReplaceAllString(s, "") }
}

// stripAsterisks keeps a line-leading "* " as a bullet glyph so list
// detection still sees it, then drops every other asterisk.
func stripAsterisks(s string) string {
	s = bulletStarRE.ReplaceAllString(s, "${1}"+bulletGlyph+" ")
	return strings.ReplaceAll(s, "*", "")
}

func linksToAnchors(s string) string {
	return linkRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := linkRE.FindStringSubmatch(m)
		if len(sub) != 3 || !safeLink(sub[2]) {
			return m
		}
		return `<a href="` + html.EscapeString(sub[2]) + `" target="_blank" rel="noopener noreferrer" class="` + AnchorClass + `">` + sub[1] + `</a>`
	})
}

func safeLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func bulletText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, bulletGlyph):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, bulletGlyph)), true
	case strings.HasPrefix(trimmed, "- "):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")), true
	default:
		return "", false
	}
}

// bulletsToLists wraps each contiguous run of bullet lines in an ordered
// list. Numbering restarts at 1 for every run.
func bulletsToLists(s string) string {
	lines := strings.Split(s, lineBreak)
	out := make([]string, 0, len(lines))
	var items []string
	flush := func() {
		if len(items) == 0 {
			return
		}
		var b strings.Builder
		b.WriteString(`<ol class="` + ListClass + `">`)
		for i, it := range items {
			b.WriteString("<li>" + strconv.Itoa(i+1) + ". " + it + "</li>")
		}
		b.WriteString("</ol>")
		out = append(out, b.String())
		items = nil
	}
	for _, line := range lines {
		if text, ok := bulletText(line); ok {
			items = append(items, text)
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return strings.Join(out, lineBreak)
}

// dashRunsToListEnds closes a list at a standalone run of two or more
// dashes. Dashes inside tags or joined to words are left alone.
func dashRunsToListEnds(s string) string {
	if !strings.Contains(s, "--") {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range tagRE.FindAllStringIndex(s, -1) {
		b.WriteString(replaceDashRuns(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(replaceDashRuns(s[last:]))
	return b.String()
}

func replaceDashRuns(text string) string {
	return dashRunRE.ReplaceAllStringFunc(text, func(m string) string {
		if strings.Trim(m, "-") != "" {
			return m
		}
		return "</ol>"
	})
}
