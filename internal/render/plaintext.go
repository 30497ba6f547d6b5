package render

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var blankLinesRE = regexp.MustCompile(`\n{3,}`)

// PlainText flattens rendered markup for terminals. Links keep their target
// in parentheses when it differs from the label.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		b     strings.Builder
		hrefs []string
		label strings.Builder
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				b.WriteString(string(z.Raw()))
			}
			return strings.TrimSpace(blankLinesRE.ReplaceAllString(b.String(), "\n\n"))
		case html.TextToken:
			txt := string(z.Text())
			if len(hrefs) > 0 {
				label.WriteString(txt)
			}
			b.WriteString(txt)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "br":
				b.WriteString("\n")
			case "ol":
				b.WriteString("\n")
			case "li":
				b.WriteString("\n  ")
			case "a":
				href := ""
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "href" {
						href = string(v)
					}
				}
				hrefs = append(hrefs, href)
				label.Reset()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "ol":
				b.WriteString("\n")
			case "a":
				if n := len(hrefs); n > 0 {
					href := hrefs[n-1]
					hrefs = hrefs[:n-1]
					if href != "" && strings.TrimSpace(label.String()) != href {
						b.WriteString(" (" + href + ")")
					}
				}
			}
		}
	}
}
