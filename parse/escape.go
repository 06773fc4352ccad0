package parse

import (
	"strconv"
	"strings"
)

// Helpers for escaping emitted text. These live in parse so that the
// stringifier and the parser agree on the round trip.

var htmlTextEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var htmlQuoteEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTMLText escapes text for an HTML body position.
func EscapeHTMLText(s string) string { return htmlTextEscaper.Replace(s) }

// EscapeHTMLQuote escapes text for a double-quoted attribute value.
func EscapeHTMLQuote(s string) string { return htmlQuoteEscaper.Replace(s) }

// QuoteLitStr renders a string literal for canonical expression output.
// Plain printable text uses single quotes; anything needing escapes falls
// back to a double-quoted form.
func QuoteLitStr(s string) string {
	plain := true
	for _, r := range s {
		if r < ' ' || r > '~' || r == '\'' || r == '\\' || r == '"' {
			plain = false
			break
		}
	}
	if plain {
		return "'" + s + "'"
	}
	return strconv.Quote(s)
}

// GenLitStr renders a string literal for generated JS-flavored output.
func GenLitStr(s string) string { return strconv.Quote(s) }
