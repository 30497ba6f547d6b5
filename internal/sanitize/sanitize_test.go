package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCases(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"hides file names", "cuet_data.csv: eligible", ": eligible"},
		{"hides every default name", "see links.csv and list.csv", "see  and "},
		{"unwraps bold", "**Bold** text", "Bold text"},
		{"strips stray asterisks", "a *b* c*", "a b c"},
		{"disclosure files", "I analyzed the provided files today", "I analyzed the relevant information today"},
		{"disclosure backticks", "Yes, based on the `file` you provided, you qualify", "Yes, analyzed the relevant information you qualify"},
		{"newlines", "one\ntwo", "one<br />two"},
		{"crlf", "one\r\ntwo", "one<br />two"},
		{"disclaimer", "Done. Please note that this list is based on the provided CSV data.", "Done. "},
		{"greeting", "Good day, student", "Hello, student"},
		{"hyphenated words survive", "B.Sc. (Hons) - Physics is a well-known course", "B.Sc. (Hons) - Physics is a well-known course"},
		{"standalone dash run", "end of list\n---\nnext", "end of list<br /></ol><br />next"},
		{"dash run joined to word", "a--b", "a--b"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeLink(t *testing.T) {
	got := Sanitize("[DU Desk](https://dudesk.in)")
	want := `<a href="https://dudesk.in" target="_blank" rel="noopener noreferrer" class="text-blue-600 underline hover:text-blue-800 break-words">DU Desk</a>`
	assert.Equal(t, want, got)
}

func TestSanitizeLinkWithDashedPath(t *testing.T) {
	got := Sanitize("[Apply](https://cuet.nta.nic.in/info--page)")
	assert.Contains(t, got, `href="https://cuet.nta.nic.in/info--page"`)
	assert.NotContains(t, got, "</ol>")
}

func TestSanitizeRejectsUnsafeLinks(t *testing.T) {
	for _, in := range []string{
		"[x](javascript:alert(1))",
		"[x](javascript:alert)",
		"[x](ftp://files.example.com)",
		"[x](/relative/path)",
	} {
		got := Sanitize(in)
		assert.NotContains(t, got, "<a ", in)
	}
}

func TestSanitizeEscapesHref(t *testing.T) {
	got := Sanitize(`[x](https://example.com/?q="onmouseover=)`)
	assert.Contains(t, got, `href="https://example.com/?q=&#34;onmouseover="`)
}

func TestBulletRunsNumberedPerRun(t *testing.T) {
	in := "Eligible courses:\n* B.Com\n* BA Economics\nAlso:\n- BSc Physics\n- BSc Maths\n- BSc Chemistry"
	got := Sanitize(in)

	want := "Eligible courses:<br />" +
		`<ol class="list-decimal pl-5"><li>1. B.Com</li><li>2. BA Economics</li></ol>` +
		"<br />Also:<br />" +
		`<ol class="list-decimal pl-5"><li>1. BSc Physics</li><li>2. BSc Maths</li><li>3. BSc Chemistry</li></ol>`
	require.Equal(t, want, got)
	assert.NotContains(t, got, "*")
}

func TestWithHiddenNames(t *testing.T) {
	s := New(WithHiddenNames("cuet_updates.csv"))
	assert.Equal(t, "see  and cuet_data.csv", s.Sanitize("see cuet_updates.csv and cuet_data.csv"))

	none := New(WithHiddenNames())
	assert.Equal(t, "list.csv", none.Sanitize("list.csv"))
}

func TestHiddenNamesAreLiteral(t *testing.T) {
	// a dot in a file name must not match arbitrary characters
	assert.Equal(t, "listXcsv", Sanitize("listXcsv"))
}

func TestTraceMatchesSanitize(t *testing.T) {
	in := "Good day! **Note**: cuet_data.csv\n* one"
	trace := New().Trace(in)
	require.Len(t, trace, 11)
	assert.Equal(t, "hide_file_names", trace[0].Label)
	assert.Equal(t, Sanitize(in), trace[len(trace)-1].Text)
}

func TestSanitizeIsTotal(t *testing.T) {
	inputs := []string{"[", "](", "**", "<", "-->", strings.Repeat("-", 50), "\n\n\n", "[a](http://)"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = Sanitize(in) }, in)
	}
}

func TestSanitizeIsSinglePass(t *testing.T) {
	once := Sanitize("[[DU](https://dudesk.in)](https://du.ac.in)")
	assert.Contains(t, once, `href="https://dudesk.in"`)
	assert.NotContains(t, once, `href="https://du.ac.in"`)

	twice := Sanitize(once)
	assert.Contains(t, twice, `href="https://du.ac.in"`)
	assert.NotEqual(t, once, twice)
}
