package lsp

// ServerCapabilities is the subset of the LSP capabilities object spec
// §6 requires servers to declare.
type ServerCapabilities struct {
	TextDocumentSync                 int                          `json:"textDocumentSync"`
	HoverProvider                    bool                         `json:"hoverProvider"`
	CompletionProvider                CompletionOptions           `json:"completionProvider"`
	DefinitionProvider                bool                        `json:"definitionProvider"`
	DeclarationProvider               bool                        `json:"declarationProvider"`
	ReferencesProvider                bool                        `json:"referencesProvider"`
	RenameProvider                     bool                       `json:"renameProvider"`
	DocumentSymbolProvider             bool                       `json:"documentSymbolProvider"`
	SemanticTokensProvider             *SemanticTokensOptions     `json:"semanticTokensProvider,omitempty"`
	FoldingRangeProvider               bool                       `json:"foldingRangeProvider"`
	DocumentRangeFormattingProvider    bool                       `json:"documentRangeFormattingProvider"`
	DocumentOnTypeFormattingProvider   *OnTypeFormattingOptions   `json:"documentOnTypeFormattingProvider,omitempty"`
	ExecuteCommandProvider             *ExecuteCommandOptions     `json:"executeCommandProvider,omitempty"`
}

// TextDocumentSyncFull is the sync kind spec §6 mandates (full-document
// resync on every change, no incremental deltas).
const TextDocumentSyncFull = 1

type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type SemanticTokensOptions struct {
	Legend TokenLegend `json:"legend"`
	Full   bool        `json:"full"`
}

type TokenLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

type OnTypeFormattingOptions struct {
	FirstTriggerCharacter string   `json:"firstTriggerCharacter"`
	MoreTriggerCharacter  []string `json:"moreTriggerCharacter"`
}

type ExecuteCommandOptions struct {
	Commands []string `json:"commands"`
}

// merlinTriggerChars and basicTriggerChars are spec §6's per-language
// completion trigger sets.
var merlinTriggerChars = []string{"\n", " ", ":", ",", "]", "(", "["}
var basicTriggerChars = []string{"\n", " ", "$", ":", ",", "]", "(", "["}

// tokenTypes is the semantic-token legend every language server
// advertises (spec §6's TOKEN_TYPES).
var tokenTypes = []string{
	"namespace", "type", "class", "enum", "interface", "struct",
	"typeParameter", "parameter", "variable", "property", "enumMember",
	"event", "function", "method", "macro", "keyword", "modifier",
	"comment", "string", "number", "regexp", "operator", "label",
}

// CapabilitiesFor builds the capabilities object for one language
// server ("merlin6502", "applesoft", or "integerbasic"); the trigger
// characters and executeCommand verb prefix vary by language, the rest
// of the surface is identical across all three.
func CapabilitiesFor(lang string) ServerCapabilities {
	triggers := basicTriggerChars
	if lang == "merlin6502" {
		triggers = merlinTriggerChars
	}
	return ServerCapabilities{
		TextDocumentSync:    TextDocumentSyncFull,
		HoverProvider:       true,
		CompletionProvider:  CompletionOptions{TriggerCharacters: triggers},
		DefinitionProvider:  true,
		DeclarationProvider: true,
		ReferencesProvider:  true,
		RenameProvider:      true,
		DocumentSymbolProvider: true,
		SemanticTokensProvider: &SemanticTokensOptions{
			Legend: TokenLegend{TokenTypes: tokenTypes},
			Full:   true,
		},
		FoldingRangeProvider:            true,
		DocumentRangeFormattingProvider: true,
		DocumentOnTypeFormattingProvider: &OnTypeFormattingOptions{
			FirstTriggerCharacter: " ",
			MoreTriggerCharacter:  []string{";"},
		},
		ExecuteCommandProvider: &ExecuteCommandOptions{
			Commands: commandsFor(lang),
		},
	}
}

func commandsFor(lang string) []string {
	verbs := []string{"tokenize", "detokenize", "minify", "renumber", "move",
		"disk.mount", "disk.pick", "disk.put", "disk.delete"}
	out := make([]string, len(verbs))
	for i, v := range verbs {
		out[i] = lang + "." + v
	}
	return out
}
