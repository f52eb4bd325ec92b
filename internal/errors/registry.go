package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Selector and dispatch errors (L001-L009)
	// ============================================

	"L001": {
		Category:   CategorySelector,
		Message:    "Selector did not compile",
		Detail:     "The selector text is not valid CSS. The set was created but will never match any node.",
		Suggestion: "Check the selector syntax; the set stays empty until it is recreated.",
	},
	"L002": {
		Category: CategoryDispatch,
		Message:  "Transform failed",
		Detail:   "The transform function panicked while a node was being added. The node was skipped and the rest of the batch was applied.",
	},
	"L003": {
		Category: CategoryDispatch,
		Message:  "Teardown failed",
		Detail:   "A teardown value failed while a node was leaving its set. Other teardowns scheduled in the same frame still ran.",
	},
	"L004": {
		Category: CategoryDispatch,
		Message:  "Set disposed",
		Detail:   "The set has been disposed and no longer tracks nodes.",
	},
	"L005": {
		Category:   CategoryDispatch,
		Message:    "Scope node is not part of the document",
		Detail:     "The scope node is detached, so structural changes inside it are never reported.",
		Suggestion: "Attach the scope node to the document before selecting inside it.",
	},

	// ============================================
	// Source errors (L010-L019)
	// ============================================

	"L010": {
		Category: CategorySource,
		Message:  "Document fetch failed",
	},
	"L011": {
		Category:   CategorySource,
		Message:    "Unsupported document source",
		Suggestion: "Use a file path, an http(s):// URL or s3://bucket/key.",
	},
	"L012": {
		Category: CategorySource,
		Message:  "Document parse failed",
	},

	// ============================================
	// Config errors (L020-L029)
	// ============================================

	"L020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"L021": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be read",
	},

	// ============================================
	// API errors (L030-L039)
	// ============================================

	"L030": {
		Category: CategoryAPI,
		Message:  "Unknown set",
	},
	"L031": {
		Category: CategoryAPI,
		Message:  "Invalid mutation",
	},
	"L032": {
		Category: CategoryAPI,
		Message:  "Node path not found",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
