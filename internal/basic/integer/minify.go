package integer

import "strings"

// MinifyLevel1 strips whitespace outside string/REM payloads (spec
// §4.5.2 level 1's whitespace half), mirroring
// internal/basic/applesoft's MinifyLevel1. The variable-shortening
// half of level 1, and levels 2/3, are not yet implemented — see
// DESIGN.md and internal/basic/applesoft/minify.go's scope note, which
// applies here identically.
func MinifyLevel1(program string) (string, error) {
	var out strings.Builder
	for _, line := range strings.Split(program, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNum, body, err := splitLineNumber(line)
		if err != nil {
			return "", err
		}
		out.WriteString(itoa(int(lineNum)))
		out.WriteString(stripStatementWhitespace(body))
		out.WriteByte('\n')
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func stripStatementWhitespace(body string) string {
	var out strings.Builder
	i := 0
	n := len(body)
	for i < n {
		c := body[i]
		switch {
		case c == ' ':
			i++
		case c == '"':
			j := i + 1
			for j < n && body[j] != '"' {
				j++
			}
			if j < n {
				j++
			}
			out.WriteString(body[i:j])
			i = j
		default:
			if kw, adv, ok := matchKeyword(body[i:]); ok {
				out.WriteString(kw)
				i += adv
				if tokenMap[kw] == remTokI {
					out.WriteString(body[i:])
					return out.String()
				}
			} else {
				out.WriteByte(upper(c))
				i++
			}
		}
	}
	return out.String()
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
