package followers

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxCount is the hard cap on profiles a single run may request.
const MaxCount = 2000

// FilterRequest is the validated descriptor handed to the stream opener.
type FilterRequest struct {
	Identifier string
	Prompt     string
	Count      int
	Cursor     string
}

// BuildRequest validates the raw operator input and produces a request
// descriptor. Pure: no I/O happens here, so it is testable without a backend.
//
// The identifier field is split on whitespace and commas; exactly one token
// must remain, and a leading @ is stripped. The count must parse as an
// integer in [1, MaxCount]. The cursor is passed through verbatim if present
// and non-empty.
func BuildRequest(identifier, count, prompt, cursor string) (FilterRequest, error) {
	tokens := strings.FieldsFunc(identifier, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(tokens) != 1 {
		return FilterRequest{}, &ValidationError{Reason: ReasonMultipleIdentifiers}
	}
	ident := strings.TrimPrefix(tokens[0], "@")

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return FilterRequest{}, &ValidationError{Reason: ReasonMalformedCount}
	}
	if n < 1 || n > MaxCount {
		return FilterRequest{}, &ValidationError{Reason: ReasonCountOutOfRange}
	}

	return FilterRequest{
		Identifier: ident,
		Prompt:     prompt,
		Count:      n,
		Cursor:     strings.TrimSpace(cursor),
	}, nil
}
