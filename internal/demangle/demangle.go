// Package demangle implements the simple length-prefixed mangled-name
// scheme spec.md §6 describes for higher-level symbol names. Grounded
// on the teacher's parser/escape.go table-driven substitution idiom
// (escape-sequence decoding), repurposed here for the $LT$/$GT$/...
// substitution table.
package demangle

import "strings"

var substitutions = []struct {
	from string
	to   string
}{
	{"$LT$", "<"},
	{"$GT$", ">"},
	{"$LP$", "("},
	{"$RP$", ")"},
	{"$C$", ","},
	{"$SP$", " "},
	{"$u20$", " "},
}

// Name demangles raw per the `_Z N <len><text><len><text>... E <rest>`
// scheme. The N-E region is terminated by the first "E" encountered
// where a length prefix was expected, not by requiring the whole
// string to end in "E": whatever follows that E (a return/parameter
// type encoding such as the trailing "v" in `_ZN3foo3barEv`) is kept
// verbatim as one trailing, unsubstituted part. Unmangled or malformed
// names are passed through unchanged.
func Name(raw string) string {
	const prefix = "_Z"
	if !strings.HasPrefix(raw, prefix) {
		return raw
	}
	body := raw[len(prefix):]
	if body == "" {
		return raw
	}

	var parts []string
	if body[0] == 'N' {
		body = body[1:]
		for len(body) > 0 {
			if body[0] == 'E' {
				body = body[1:]
				break
			}
			lenEnd := 0
			for lenEnd < len(body) && body[lenEnd] >= '0' && body[lenEnd] <= '9' {
				lenEnd++
			}
			if lenEnd == 0 {
				return raw // malformed: neither a length prefix nor "E" where one was expected
			}
			n := 0
			for _, c := range body[:lenEnd] {
				n = n*10 + int(c-'0')
			}
			body = body[lenEnd:]
			if n > len(body) {
				return raw // malformed: declared length overruns the buffer
			}
			parts = append(parts, substitute(body[:n]))
			body = body[n:]
		}
	}
	if body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "::")
}

func substitute(s string) string {
	for _, sub := range substitutions {
		s = strings.ReplaceAll(s, sub.from, sub.to)
	}
	return s
}
