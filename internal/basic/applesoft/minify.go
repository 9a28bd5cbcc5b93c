package applesoft

import "strings"

// MinifyLevel1 strips whitespace that carries no meaning outside
// string/REM/DATA payloads (spec §4.5.2 level 1's whitespace half).
// Grounded on original_source/src/lang/applesoft/minify_test.rs's
// expectations that e.g. "10 HOME" minifies to "10HOME" while a
// string literal's interior spacing is untouched.
//
// Scope decision: level 1 also renames variables to their first two
// significant characters, guarding tokenizer-collision-prone leading
// letter pairs (AT, ATN, ATO, TO, OR, AND, NOT) with a parenthesized
// guard; that rename pass needs a whole-program symbol table (which
// sequence in pair with identifying every declaration and reference
// binding to the same variable) and is not yet implemented — see
// DESIGN.md. Levels 2 and 3 (dead-REM pruning and line-combining) are
// not yet implemented either.
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

// stripStatementWhitespace removes spaces outside string/REM/DATA
// payloads, which are preserved verbatim once their keyword is seen.
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
				if kw == "REM" || kw == "DATA" {
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
