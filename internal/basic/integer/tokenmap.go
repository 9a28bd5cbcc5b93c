package integer

// Reserved byte values confirmed directly by
// original_source/src/lang/integer/tokenizer.rs's detokenize: end of
// line is 0x01, a string literal is framed by the literal parenthesis
// bytes 0x28/0x29 (Integer BASIC does not use a distinct quote token),
// REM is exactly 93, and 0xB0..0xB9 mark an inline 16-bit numeric
// literal (the low nibble is the ASCII value of the number's leading
// decimal digit, per Tokenizer::tokenize_line's header computation).
const (
	eolByte    byte = 0x01
	openQuote  byte = 0x28
	closeQuote byte = 0x29
	remTokI    byte = 93
	numLo      byte = 0xb0
	numHi      byte = 0xb9
)

// statementWords and operatorWords are assigned token bytes below
// eolByte's and remTokI's neighbors. Apart from the three reserved
// bytes above, the original's own token_maps.rs table did not survive
// the source filter, so these specific byte assignments are this
// package's own self-consistent numbering rather than a recovered
// ROM table; DESIGN.md records this as an open item pending
// verification against an authoritative Integer BASIC token table.
var statementWords = []string{
	"HIMEM:", "LOMEM:", "CLR", "TRACE", "NOTRACE", "END", "GOSUB",
	"RETURN", "GOTO", "RUN", "IF", "FOR", "NEXT", "INPUT", "PRINT",
	"LET", "DIM", "TAB", "GR", "CALL", "TEXT", "STOP", "ON", "WAIT",
	"POKE", "FLASH", "NORMAL", "INVERSE", "COLOR=", "POP", "VTAB",
	"PLOT", "HLIN", "VLIN", "REM",
}

var operatorWords = []string{
	"NOT", "AND", "OR", "MOD", "STEP", "THEN", "TO",
	"=", "<", ">", "<>", "<=", ">=", "+", "-", "*", "/", "^",
	"(", ")", ",", ";", ":",
	"ABS", "LEN", "ASC", "SCRN", "RND", "SGN", "PEEK", "FRE",
}

var tokenMap = func() map[string]byte {
	m := make(map[string]byte)
	b := byte(2)
	assign := func(word string, fixed byte) {
		if fixed != 0 {
			m[word] = fixed
			return
		}
		for b == eolByte || b == openQuote || b == closeQuote || b == 0x40 || b == remTokI || (b >= numLo && b <= numHi) {
			b++
		}
		m[word] = b
		b++
	}
	for _, w := range statementWords {
		if w == "REM" {
			assign(w, remTokI)
			continue
		}
		assign(w, 0)
	}
	for _, w := range operatorWords {
		assign(w, 0)
	}
	return m
}()

var detokMap = func() map[byte]string {
	m := make(map[byte]string, len(tokenMap))
	for k, v := range tokenMap {
		m[v] = k
	}
	m[0x40] = "$"
	return m
}()

// keywordsByLength is tokenMap's keys ordered longest-first so a
// scanner tries multi-character operators like "<>" before "<".
var keywordsByLength []string

func init() {
	for k := range tokenMap {
		keywordsByLength = append(keywordsByLength, k)
	}
	for i := 1; i < len(keywordsByLength); i++ {
		for j := i; j > 0 && len(keywordsByLength[j]) > len(keywordsByLength[j-1]); j-- {
			keywordsByLength[j], keywordsByLength[j-1] = keywordsByLength[j-1], keywordsByLength[j]
		}
	}
}
