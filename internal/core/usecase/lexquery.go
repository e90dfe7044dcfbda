package usecase

import "strings"

// BuildLexicalQuery assembles the full-text query expression from extracted
// terms. Up to two terms are AND-ed; any further terms OR against that
// group:
//
//	(t1 & t2) | t3 | t4
//
// Loosening precision as breadth grows trades precision for recall on long
// queries, where requiring every term rarely matches anything.
func BuildLexicalQuery(terms []string) string {
	sanitized := make([]string, 0, len(terms))
	for _, term := range terms {
		if s := sanitizeLexeme(term); s != "" {
			sanitized = append(sanitized, s)
		}
	}

	switch len(sanitized) {
	case 0:
		return ""
	case 1:
		return sanitized[0]
	case 2:
		return sanitized[0] + " & " + sanitized[1]
	default:
		var b strings.Builder
		b.WriteString("(")
		b.WriteString(sanitized[0])
		b.WriteString(" & ")
		b.WriteString(sanitized[1])
		b.WriteString(")")
		for _, term := range sanitized[2:] {
			b.WriteString(" | ")
			b.WriteString(term)
		}
		return b.String()
	}
}

// sanitizeLexeme drops query-operator characters so user text can never
// change the expression structure. The expression itself is still bound as a
// statement parameter by the store.
func sanitizeLexeme(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '\'', '<', '>', '*', '\\':
			return -1
		}
		return r
	}, strings.TrimSpace(term))
}
