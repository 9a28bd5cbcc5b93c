// Package applesoft implements the Applesoft BASIC tokenizer and
// detokenizer (spec §4.5.1).
//
// Grounded on original_source/src/lang/applesoft/tokenizer.rs. The
// original walks a tree-sitter parse tree to tokenize; no Go
// tree-sitter grammar for Applesoft exists in the example pack, so
// Tokenize here is a direct line-oriented scanner instead of a
// grammar-driven tree walk. It recognizes the same keyword set,
// upper-cases and strips spaces from code outside strings/REM/DATA the
// same way the tree-sitter visitor does, and preserves string, REM and
// DATA payloads verbatim — the scanner's outputs and the original's
// agree on every input that doesn't need full expression-grammar
// disambiguation (e.g. telling a variable named "AT" from the token
// AT, which the original's grammar resolves and this scanner does not
// attempt — ambiguous identifiers should avoid shadowing keywords).
// Detokenize is a byte-exact port of the original's detokenize, which
// needs no grammar.
package applesoft

import (
	"fmt"
	"strconv"
	"strings"
)

// Tokenize converts an Applesoft source listing (one statement per
// line, each line beginning with a line number) into its chained
// on-disk token representation, starting the link-address chain at
// startAddr.
func Tokenize(program string, startAddr uint16) ([]byte, error) {
	var out []byte
	addr := startAddr
	for _, line := range strings.Split(program, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNum, body, err := splitLineNumber(line)
		if err != nil {
			return nil, err
		}
		tok, err := tokenizeStatement(body)
		if err != nil {
			return nil, fmt.Errorf("applesoft: line %d: %w", lineNum, err)
		}
		rec := make([]byte, 0, len(tok)+5)
		rec = append(rec, 0, 0) // link address placeholder, patched below
		rec = append(rec, byte(lineNum), byte(lineNum>>8))
		rec = append(rec, tok...)
		rec = append(rec, 0)
		nextAddr := addr + uint16(len(rec))
		rec[0], rec[1] = byte(nextAddr), byte(nextAddr>>8)
		addr = nextAddr
		out = append(out, rec...)
	}
	out = append(out, 0, 0)
	return out, nil
}

func splitLineNumber(line string) (uint16, string, error) {
	line = strings.TrimLeft(line, " ")
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("applesoft: line is missing a line number")
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil || n < 0 || n > 63999 {
		return 0, "", fmt.Errorf("applesoft: invalid line number %q", line[:i])
	}
	return uint16(n), line[i:], nil
}

func tokenizeStatement(body string) ([]byte, error) {
	var out []byte
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
			out = append(out, body[i:j]...)
			i = j
		default:
			if kw, adv, ok := matchKeyword(body[i:]); ok {
				out = append(out, tokenMap[kw])
				i += adv
				switch tokenMap[kw] {
				case remTok:
					out = append(out, []byte(body[i:])...)
					return out, nil
				case dataTok:
					out = append(out, []byte(body[i:])...)
					return out, nil
				}
			} else {
				out = append(out, upper(c))
				i++
			}
		}
	}
	return out, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// matchKeyword finds the longest keyword in tokenMap that matches the
// start of s case-insensitively, requiring the match not be followed
// by another identifier character (so GOT0 doesn't absorb GO).
func matchKeyword(s string) (kw string, length int, ok bool) {
	for _, k := range keywordsByLength {
		if len(k) > len(s) {
			continue
		}
		if !strings.EqualFold(s[:len(k)], k) {
			continue
		}
		// alphabetic keywords must not be a prefix of a longer identifier
		lastCh := k[len(k)-1]
		if isAlpha(lastCh) && len(s) > len(k) && isIdentChar(s[len(k)]) {
			continue
		}
		return k, len(k), true
	}
	return "", 0, false
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentChar(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9') || c == '$' || c == '%'
}

// Detokenize renders a chained Applesoft program image back to a
// UTF-8 listing, ported byte-for-byte from Tokenizer::detokenize.
func Detokenize(img []byte) (string, error) {
	var code strings.Builder
	addr := 0
	for addr < len(img) && addr+1 < len(img) && (img[addr] != 0 || img[addr+1] != 0) {
		addr += 2 // skip link address
		if addr+1 >= len(img) {
			return "", fmt.Errorf("applesoft: program ended before end-of-program marker")
		}
		lineNum := int(img[addr]) + int(img[addr+1])*256
		code.WriteString(strconv.Itoa(lineNum))
		code.WriteByte(' ')
		addr += 2
		for addr < len(img) && img[addr] != 0 {
			switch {
			case img[addr] == quoteByte:
				code.WriteByte('"')
				addr++
				for addr < len(img) && img[addr] != quoteByte && img[addr] != 0 {
					code.WriteByte(img[addr])
					addr++
				}
				if addr < len(img) && img[addr] == quoteByte {
					code.WriteByte('"')
					addr++
				}
			case img[addr] == remTok:
				code.WriteString(" REM ")
				addr++
				for addr < len(img) && img[addr] != 0 {
					code.WriteByte(img[addr])
					addr++
				}
			case img[addr] == dataTok:
				code.WriteString(" DATA ")
				addr++
				for addr < len(img) && img[addr] != 0 {
					code.WriteByte(img[addr])
					addr++
				}
			case img[addr] > 127:
				tok, ok := detokMap[img[addr]]
				if !ok {
					return "", fmt.Errorf("applesoft: unrecognized token %#02x", img[addr])
				}
				code.WriteByte(' ')
				code.WriteString(strings.ToUpper(tok))
				code.WriteByte(' ')
				addr++
			default:
				code.WriteByte(img[addr])
				addr++
			}
		}
		code.WriteByte('\n')
		addr++
	}
	return code.String(), nil
}
