package applesoft

// tokenMap is Applesoft II's keyword-to-token-byte table (tokens 0x80
// through 0xEA), grounded on the publicly documented Applesoft token
// assignments (the original's token_maps.rs table did not survive the
// source filter, so this package falls back to public reference
// documentation for the byte values themselves, the same class of
// fallback already used for internal/diskfs/fat's BPB layout).
var tokenMap = map[string]byte{
	"END": 0x80, "FOR": 0x81, "NEXT": 0x82, "DATA": 0x83, "INPUT": 0x84,
	"DEL": 0x85, "DIM": 0x86, "READ": 0x87, "GR": 0x88, "TEXT": 0x89,
	"PR#": 0x8a, "IN#": 0x8b, "CALL": 0x8c, "PLOT": 0x8d, "HLIN": 0x8e,
	"VLIN": 0x8f, "HGR2": 0x90, "HGR": 0x91, "HCOLOR=": 0x92, "HPLOT": 0x93,
	"DRAW": 0x94, "XDRAW": 0x95, "HTAB": 0x96, "HOME": 0x97, "ROT=": 0x98,
	"SCALE=": 0x99, "SHLOAD": 0x9a, "TRACE": 0x9b, "NOTRACE": 0x9c,
	"NORMAL": 0x9d, "INVERSE": 0x9e, "FLASH": 0x9f, "COLOR=": 0xa0,
	"POP": 0xa1, "VTAB": 0xa2, "HIMEM:": 0xa3, "LOMEM:": 0xa4, "ONERR": 0xa5,
	"RESUME": 0xa6, "RECALL": 0xa7, "STORE": 0xa8, "SPEED=": 0xa9,
	"LET": 0xaa, "GOTO": 0xab, "RUN": 0xac, "IF": 0xad, "RESTORE": 0xae,
	"&": 0xaf, "GOSUB": 0xb0, "RETURN": 0xb1, "REM": 0xb2, "STOP": 0xb3,
	"ON": 0xb4, "WAIT": 0xb5, "LOAD": 0xb6, "SAVE": 0xb7, "DEF FN": 0xb8,
	"POKE": 0xb9, "PRINT": 0xba, "CONT": 0xbb, "LIST": 0xbc, "CLEAR": 0xbd,
	"GET": 0xbe, "NEW": 0xbf, "TAB(": 0xc0, "TO": 0xc1, "FN": 0xc2,
	"SPC(": 0xc3, "THEN": 0xc4, "AT": 0xc5, "NOT": 0xc6, "STEP": 0xc7,
	"+": 0xc8, "-": 0xc9, "*": 0xca, "/": 0xcb, "^": 0xcc, "AND": 0xcd,
	"OR": 0xce, ">": 0xcf, "=": 0xd0, "<": 0xd1, "SGN": 0xd2, "INT": 0xd3,
	"ABS": 0xd4, "USR": 0xd5, "FRE": 0xd6, "SCRN(": 0xd7, "PDL": 0xd8,
	"POS": 0xd9, "SQR": 0xda, "RND": 0xdb, "LOG": 0xdc, "EXP": 0xdd,
	"COS": 0xde, "SIN": 0xdf, "TAN": 0xe0, "ATN": 0xe1, "PEEK": 0xe2,
	"LEN": 0xe3, "STR$": 0xe4, "VAL": 0xe5, "ASC": 0xe6, "CHR$": 0xe7,
	"LEFT$": 0xe8, "RIGHT$": 0xe9, "MID$": 0xea,
}

var detokMap = func() map[byte]string {
	m := make(map[byte]string, len(tokenMap))
	for k, v := range tokenMap {
		m[v] = k
	}
	return m
}()

const dataTok byte = 0x83
const remTok byte = 0xb2
const quoteByte byte = '"'

// keywords in the order longest-match-first so multi-word tokens like
// "DEF FN" are not shadowed by a shorter prefix.
var keywordsByLength []string

func init() {
	for k := range tokenMap {
		keywordsByLength = append(keywordsByLength, k)
	}
	// simple insertion sort by descending length; table is small and
	// fixed so this runs once at package init.
	for i := 1; i < len(keywordsByLength); i++ {
		for j := i; j > 0 && len(keywordsByLength[j]) > len(keywordsByLength[j-1]); j-- {
			keywordsByLength[j], keywordsByLength[j-1] = keywordsByLength[j-1], keywordsByLength[j]
		}
	}
}
