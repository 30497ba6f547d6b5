// Package sanitize turns raw model output into the display markup used by
// the chat transcript. Every function here is pure and never fails.
package sanitize

import (
	"regexp"
	"strings"
)

var DefaultHiddenNames = []string{"cuet_data.csv", "links.csv", "list.csv"}

const (
	AnchorClass = "text-blue-600 underline hover:text-blue-800 break-words"
	ListClass   = "list-decimal pl-5"
)

// rule is one ordered transform. Label is used by Trace.
type rule struct {
	Label string
	Apply func(string) string
}

type Sanitizer struct {
	rules []rule
}

type Option func(*config)

type config struct {
	hidden []string
}

// WithHiddenNames replaces the list of reference file names scrubbed from
// output. An empty list disables that step.
func WithHiddenNames(names ...string) Option {
	return func(c *config) {
		c.hidden = c.hidden[:0]
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				c.hidden = append(c.hidden, n)
			}
		}
	}
}

func New(opts ...Option) *Sanitizer {
	cfg := &config{hidden: append([]string(nil), DefaultHiddenNames...)}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	return &Sanitizer{rules: []rule{
		{Label: "hide_file_names", Apply: hideNames(cfg.hidden)},
		{Label: "unwrap_bold", Apply: replaceRE(boldRE, "$1")},
		{Label: "rewrite_disclosure", Apply: replaceRE(disclosureRE, "analyzed the relevant information")},
		{Label: "strip_asterisks", Apply: stripAsterisks},
		{Label: "newlines_to_breaks", Apply: replaceRE(newlineRE, "<br />")},
		{Label: "links_to_anchors", Apply: linksToAnchors},
		{Label: "bullets_to_lists", Apply: bulletsToLists},
		{Label: "newlines_to_item_ends", Apply: replaceRE(newlineRE, "</li>")},
		{Label: "dash_runs_to_list_ends", Apply: dashRunsToListEnds},
		{Label: "drop_csv_disclaimer", Apply: replaceRE(disclaimerRE, "")},
		{Label: "greeting", Apply: replaceRE(greetingRE, "Hello")},
	}}
}

var defaultSanitizer = New()

// Sanitize runs the default pipeline. The link, list and dash steps are not
// idempotent: a second pass can convert text the first pass left behind,
// so run it once on raw model output.
func Sanitize(text string) string { return defaultSanitizer.Sanitize(text) }

// Sanitize runs every step in order. See the package-level Sanitize for the
// single-pass requirement.
func (s *Sanitizer) Sanitize(text string) string {
	if s == nil {
		return defaultSanitizer.Sanitize(text)
	}
	for _, r := range s.rules {
		text = r.Apply(text)
	}
	return text
}

// StepResult is the text after one named step.
type StepResult struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Trace runs the pipeline and records the intermediate text after each step.
func (s *Sanitizer) Trace(text string) []StepResult {
	if s == nil {
		s = defaultSanitizer
	}
	out := make([]StepResult, 0, len(s.rules))
	for _, r := range s.rules {
		text = r.Apply(text)
		out = append(out, StepResult{Label: r.Label, Text: text})
	}
	return out
}

func replaceRE(re *regexp.Regexp, repl string) func(string) string {
	return func(s string) string { return re.ReplaceAllString(s, repl) }
}
