package splitter

import (
	"regexp"
	"strings"
	"unicode"
)

// Extracted-PDF text commonly carries artifacts of the page layout: words
// hyphenated across line breaks, lines holding only a page number, and
// runs of blank lines between what used to be visual blocks.
var (
	hyphenBreakRe = regexp.MustCompile(`(\w)-\n\s*(\w)`)
	pageNumberRe  = regexp.MustCompile(`^\s*\d+\s*$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(`[ \t]{2,}`)
)

// NormalizeDocument cleans up text recovered from a lossy source format.
// It rejoins words split across line breaks, drops page-number-only lines,
// strips non-printable characters, and collapses excess whitespace while
// preserving paragraph breaks.
func NormalizeDocument(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = stripNonPrintable(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if pageNumberRe.MatchString(line) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	text = strings.Join(kept, "\n")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// stripNonPrintable removes control and other non-printable runes, keeping
// newlines and tabs so line structure survives for the later passes.
func stripNonPrintable(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, text)
}
