// Package markup converts lightly-tagged reply text into the offset-based
// rich-text form the chat platform expects: plain text plus a list of
// style spans positioned within it.
package markup

import "regexp"

// Style identifies one of the four supported inline styles.
type Style string

const (
	StyleBold      Style = "bold"
	StyleItalic    Style = "italic"
	StyleUnderline Style = "underline"
	StyleStrike    Style = "strike"
)

// Span records one styled run within transcoded plain text. Offset and
// Length are byte positions relative to the stripped text, not the tagged
// source.
type Span struct {
	Style  Style `json:"style"`
	Offset int   `json:"offset"`
	Length int   `json:"length"`
}

// Each style gets its own pattern so an opening tag only ever pairs with
// its own closing tag. A single combined pattern cannot express that
// without backreferences, which RE2 does not support.
var stylePatterns = []struct {
	re    *regexp.Regexp
	style Style
}{
	{regexp.MustCompile(`<b>(.*?)</b>`), StyleBold},
	{regexp.MustCompile(`<i>(.*?)</i>`), StyleItalic},
	{regexp.MustCompile(`<u>(.*?)</u>`), StyleUnderline},
	{regexp.MustCompile(`<s>(.*?)</s>`), StyleStrike},
}

// Transcode strips the tag vocabulary from text and returns the plain
// text together with spans for each matched tag occurrence, in document
// order. Spans never overlap and always lie within the returned text.
//
// Unterminated or mismatched tags are left as literal text. Nesting gets
// no special handling: the earliest-starting well-formed pair wins, and
// its inner text (including any inner tags) is carried verbatim as a
// single span.
func Transcode(text string) (string, []Span) {
	var (
		plain []byte
		spans []Span
	)

	rest := text
	for {
		// Leftmost-starting match across the four kinds. At most one
		// kind can open at a given position, so there are no ties.
		var (
			loc   []int
			style Style
		)
		for _, p := range stylePatterns {
			m := p.re.FindStringSubmatchIndex(rest)
			if m == nil {
				continue
			}
			if loc == nil || m[0] < loc[0] {
				loc = m
				style = p.style
			}
		}
		if loc == nil {
			break
		}

		inner := rest[loc[2]:loc[3]]
		plain = append(plain, rest[:loc[0]]...)

		spans = append(spans, Span{
			Style:  style,
			Offset: len(plain),
			Length: len(inner),
		})
		plain = append(plain, inner...)
		rest = rest[loc[1]:]
	}

	plain = append(plain, rest...)
	return string(plain), spans
}
