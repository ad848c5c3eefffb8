package db

import "strings"

// splitSQLStatements splits a migration file on top-level semicolons. Quoted
// strings, identifiers, dollar-quoted bodies and comments are respected.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
		dollarTag  string
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}

		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch {
		case dollarTag != "":
			if strings.HasPrefix(content[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""

				continue
			}
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case strings.HasPrefix(content[i:], "--"):
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				i = len(content)
				continue
			}

			i += end
			ch = '\n'
		case strings.HasPrefix(content[i:], "/*"):
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				i = len(content)
			} else {
				i += end + 3
			}

			continue
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '$':
			if tag := dollarQuoteTag(content[i:]); tag != "" {
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag) - 1

				continue
			}
		case ch == ';':
			flush()
			continue
		}

		current.WriteByte(ch)
	}

	flush()

	return statements
}

// dollarQuoteTag returns "$$" or "$name$" when s starts with one.
func dollarQuoteTag(s string) string {
	for i := 1; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '$':
			return s[:i+1]
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9' && i > 1:
			continue
		default:
			return ""
		}
	}

	return ""
}
