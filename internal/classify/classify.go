// Package classify inspects a raw portal response body before any parsing is
// attempted. The portal intermittently answers CSV report requests with an
// HTML error page; feeding that to the CSV parser yields a single-column
// garbage table that silently corrupts downstream rates, so the body is
// classified first and error markup is rejected loudly.
package classify

import "strings"

// Classification is the verdict on a raw response body.
type Classification int

const (
	// Unparsable means the body matches neither markup nor delimited data.
	Unparsable Classification = iota
	// StructuredData means the body looks like a delimited table.
	StructuredData
	// ErrorMarkup means the portal returned an HTML error page.
	ErrorMarkup
)

func (c Classification) String() string {
	switch c {
	case StructuredData:
		return "structured data"
	case ErrorMarkup:
		return "error markup"
	default:
		return "unparsable"
	}
}

// delimiters tried when probing the header line: every delimiter the parser
// can handle, including its auto-detected pipe.
var delimiters = []string{",", ";", "\t", "|"}

// Classify is a pure function of the body text: same input, same verdict.
func Classify(body string) Classification {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Unparsable
	}

	if isMarkup(trimmed) {
		return ErrorMarkup
	}

	header, _, _ := strings.Cut(trimmed, "\n")
	for _, d := range delimiters {
		if strings.Contains(header, d) {
			return StructuredData
		}
	}

	return Unparsable
}

// isMarkup reports whether the leading content is a markup document
// declaration or an opening tag.
func isMarkup(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}

	// Any opening tag counts: error pages are not always full documents.
	if strings.HasPrefix(lower, "<") {
		if end := strings.IndexAny(lower, " >\n"); end > 1 {
			tag := strings.TrimPrefix(lower[1:end], "/")
			return isIdentifier(tag)
		}
	}

	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '!' && r != '-' {
			return false
		}
	}
	return true
}
