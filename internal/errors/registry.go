package errors

import (
	"net/http"
	"sort"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No printdesk.json or printdesk.yaml was found in the given directory.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Route Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryRoute,
		Message:  "Page not found",
		Status:   http.StatusNotFound,
	},
	"E202": {
		Category: CategoryRoute,
		Message:  "Page component failed to load",
		Detail:   "The loader for the matched route returned an error. The next navigation retries the load.",
	},
	"E203": {
		Category: CategoryRoute,
		Message:  "Invalid route table",
	},
	"E204": {
		Category: CategoryRoute,
		Message:  "Invalid request path",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Storage Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryStorage,
		Message:  "File not found",
		Status:   http.StatusNotFound,
	},
	"E302": {
		Category: CategoryStorage,
		Message:  "Invalid file name",
		Detail:   "File names must be a single path element without separators or NUL bytes.",
		Status:   http.StatusBadRequest,
	},
	"E303": {
		Category: CategoryStorage,
		Message:  "No file uploaded",
		Status:   http.StatusBadRequest,
	},
	"E304": {
		Category: CategoryStorage,
		Message:  "File too large",
		Status:   http.StatusRequestEntityTooLarge,
	},
	"E305": {
		Category: CategoryStorage,
		Message:  "Storage operation failed",
	},
	"E306": {
		Category: CategoryStorage,
		Message:  "Too many requests",
		Status:   http.StatusTooManyRequests,
	},

	// ============================================
	// Print Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryPrint,
		Message:  "Unsupported file type",
		Status:   http.StatusBadRequest,
	},
	"E402": {
		Category: CategoryPrint,
		Message:  "Print command failed",
	},
	"E403": {
		Category: CategoryPrint,
		Message:  "File name is required",
		Status:   http.StatusBadRequest,
	},
	"E404": {
		Category: CategoryPrint,
		Message:  "Invalid request body",
		Status:   http.StatusBadRequest,
	},
	"E405": {
		Category: CategoryPrint,
		Message:  "Open command failed",
	},

	// ============================================
	// VNC Connection Errors (E500-E599)
	// ============================================

	"E501": {
		Category: CategoryVNC,
		Message:  "Invalid connection index",
		Status:   http.StatusBadRequest,
	},
	"E502": {
		Category: CategoryVNC,
		Message:  "Failed to load VNC connections",
	},
	"E503": {
		Category: CategoryVNC,
		Message:  "Failed to save VNC connections",
	},
	"E504": {
		Category: CategoryVNC,
		Message:  "Invalid connection",
		Detail:   "A connection needs a name and a host:port url.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Proxy Errors (E600-E699)
	// ============================================

	"E601": {
		Category: CategoryProxy,
		Message:  "Invalid target address",
		Status:   http.StatusBadRequest,
	},
	"E602": {
		Category: CategoryProxy,
		Message:  "Failed to connect to VNC server",
		Status:   http.StatusBadGateway,
	},
	"E603": {
		Category: CategoryProxy,
		Message:  "Custom targets are disabled",
		Status:   http.StatusForbidden,
	},
	"E604": {
		Category: CategoryProxy,
		Message:  "WebSocket connection failed",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Build Errors (E700-E799)
	// ============================================

	"E701": {
		Category: CategoryBuild,
		Message:  "Invalid build configuration",
	},
	"E702": {
		Category: CategoryBuild,
		Message:  "Bundler failed",
	},
	"E703": {
		Category: CategoryBuild,
		Message:  "Bundler not found",
		Detail:   "The bundler command is not on PATH.",
	},
	"E704": {
		Category: CategoryBuild,
		Message:  "Build manifest missing",
		Detail:   "The bundler did not produce .vite/manifest.json in the output directory.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
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
