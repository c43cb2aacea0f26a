package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E101-E199)
	// ============================================

	"E101": {
		Category: CategoryRuntime,
		Message:  "Set on readonly target",
		Detail:   "The value was written through a readonly wrapper. The underlying target is left unchanged.",
	},
	"E102": {
		Category: CategoryRuntime,
		Message:  "Write to getter-only computed",
		Detail:   "The computed value was created from a getter alone. Create it with NewWritableComputed to accept writes.",
	},
	"E103": {
		Category: CategoryRuntime,
		Message:  "Cannot wrap non-object value",
		Detail:   "Only maps with string keys, slices, and pointers to structs or slices can be made reactive. Use a Ref for single values.",
	},

	// ============================================
	// Config Errors (E201-E299)
	// ============================================

	"E201": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "reactive.json could not be read or parsed.",
	},
	"E202": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A value in reactive.json is out of range or not recognised.",
	},

	// ============================================
	// Scenario Errors (E301-E399)
	// ============================================

	"E301": {
		Category: CategoryScenario,
		Message:  "Invalid scenario file",
		Detail:   "The scenario file could not be parsed or refers to an unknown effect, computed or key.",
	},
	"E302": {
		Category: CategoryScenario,
		Message:  "Scenario step failed",
		Detail:   "A step returned an error when applied to the reactive state.",
	},
	"E303": {
		Category: CategoryScenario,
		Message:  "Scenario expectation failed",
		Detail:   "An expect step observed a run count or value different from the expected one.",
	},

	// ============================================
	// CLI Errors (E401-E499)
	// ============================================

	"E401": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
		Detail:   "The command was called with missing or conflicting arguments.",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
