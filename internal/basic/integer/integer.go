// Package integer implements the Integer BASIC tokenizer and
// detokenizer (spec §4.5.1).
//
// Grounded on original_source/src/lang/integer/tokenizer.rs. As with
// internal/basic/applesoft, the original walks a tree-sitter parse
// tree; this package substitutes a line-oriented scanner since no Go
// tree-sitter grammar for Integer BASIC exists in the example pack.
// Detokenize is a close port of the original's detokenize, including
// its exact REM/string/numeric-literal/variable-name byte handling.
package integer

import (
	"fmt"
	"strconv"
	"strings"
)

const maxLineBytes = 126

// Tokenize converts an Integer BASIC source listing into its
// record-framed on-disk representation: {len:u8, lineno:u16 LE,
// tokens…, 0x01} per line, concatenated with no program-level
// terminator (Integer BASIC has none; the catalog's EOF field bounds
// the program).
func Tokenize(program string) ([]byte, error) {
	var out []byte
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
			return nil, fmt.Errorf("integer: line %d: %w", lineNum, err)
		}
		rec := make([]byte, 0, len(tok)+4)
		rec = append(rec, byte(lineNum), byte(lineNum>>8))
		rec = append(rec, tok...)
		rec = append(rec, eolByte)
		if len(rec)+1 > maxLineBytes {
			return nil, fmt.Errorf("integer: line %d exceeds the %d-byte line limit", lineNum, maxLineBytes)
		}
		full := append([]byte{byte(len(rec) + 1)}, rec...)
		out = append(out, full...)
	}
	return out, nil
}

func splitLineNumber(line string) (uint16, string, error) {
	line = strings.TrimLeft(line, " ")
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("integer: line is missing a line number")
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil || n < 0 || n > 32767 {
		return 0, "", fmt.Errorf("integer: invalid line number %q", line[:i])
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
			out = append(out, openQuote)
			out = append(out, body[i+1:j]...)
			out = append(out, closeQuote)
			if j < n {
				j++
			}
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < n && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			v, err := strconv.Atoi(body[i:j])
			if err != nil || v < 0 || v > 65535 {
				return nil, fmt.Errorf("invalid numeric literal %q", body[i:j])
			}
			out = append(out, numLo+(body[i]-'0'), byte(v), byte(v>>8))
			i = j
		default:
			if kw, adv, ok := matchKeyword(body[i:]); ok {
				tb := tokenMap[kw]
				out = append(out, tb)
				i += adv
				if tb == remTokI {
					out = append(out, []byte(body[i:])...)
					return out, nil
				}
				continue
			}
			if isIdentStart(c) {
				j := i
				for j < n && isIdentChar(body[j]) {
					j++
				}
				name := strings.ToUpper(body[i:j])
				for _, ch := range []byte(name) {
					if ch == '$' {
						out = append(out, 0x40)
					} else {
						out = append(out, ch+128)
					}
				}
				i = j
				continue
			}
			out = append(out, c)
			i++
		}
	}
	return out, nil
}

func matchKeyword(s string) (kw string, length int, ok bool) {
	for _, k := range keywordsByLength {
		if len(k) > len(s) {
			continue
		}
		if !strings.EqualFold(s[:len(k)], k) {
			continue
		}
		lastCh := k[len(k)-1]
		if isAlpha(lastCh) && len(s) > len(k) && isIdentChar(s[len(k)]) {
			continue
		}
		return k, len(k), true
	}
	return "", 0, false
}

func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }
func isIdentStart(c byte) bool { return isAlpha(c) }
func isIdentChar(c byte) bool  { return isAlpha(c) || (c >= '0' && c <= '9') || c == '$' }

// Detokenize renders a record-framed Integer BASIC program image back
// to a UTF-8 listing, ported from Tokenizer::detokenize.
func Detokenize(img []byte) (string, error) {
	var code strings.Builder
	addr := 0
	for addr+2 < len(img) {
		addr++ // skip record length
		lineNum := int(img[addr]) + int(img[addr+1])*256
		code.WriteString(strconv.Itoa(lineNum))
		code.WriteByte(' ')
		addr += 2
		for {
			if addr >= len(img) {
				return "", fmt.Errorf("integer: program ended while processing a line")
			}
			switch {
			case img[addr] == eolByte:
				code.WriteByte('\n')
				addr++
			case img[addr] == openQuote:
				code.WriteByte('"')
				addr++
				for addr < len(img) && img[addr] != closeQuote && img[addr] != eolByte {
					code.WriteByte(img[addr])
					addr++
				}
				if addr < len(img) && img[addr] == closeQuote {
					code.WriteByte('"')
					addr++
				}
				continue
			case img[addr] == remTokI:
				if code.Len() > 0 && !strings.HasSuffix(code.String(), " ") {
					code.WriteByte(' ')
				}
				code.WriteString("REM")
				addr++
				for addr < len(img) && img[addr] != eolByte {
					code.WriteByte(img[addr])
					addr++
				}
				continue
			case img[addr] < 128:
				tok, ok := detokMap[img[addr]]
				if !ok {
					return "", fmt.Errorf("integer: unrecognized token %#02x", img[addr])
				}
				if len(tok) > 1 && tok != "<>" && !strings.HasSuffix(code.String(), " ") {
					code.WriteByte(' ')
				}
				code.WriteString(strings.ToUpper(tok))
				if len(tok) > 1 && tok != "<>" && !strings.HasSuffix(tok, "(") && !strings.HasSuffix(tok, "=") {
					code.WriteByte(' ')
				}
				addr++
				continue
			case img[addr] >= numLo && img[addr] <= numHi:
				if addr+2 >= len(img) {
					return "", fmt.Errorf("integer: program ended while processing an integer literal")
				}
				v := int(img[addr+1]) + int(img[addr+2])*256
				code.WriteString(strconv.Itoa(v))
				addr += 3
				continue
			default:
				for addr < len(img) && img[addr] >= 128 {
					code.WriteByte(img[addr] - 128)
					addr++
				}
				continue
			}
			break
		}
	}
	return code.String(), nil
}
