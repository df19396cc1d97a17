package server

import "strings"

// formatHandlerName extracts a short handler name from Gin's full handler
// path. Gin reports closures such as
// "github.com/kbukum/demandflow/server/endpoint.Progress.func1"; this returns
// "progress".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")

	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	// "(*Server).Handle" → "Server.Handle"
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	// drop a lowercase package prefix
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == parts[0] && parts[1] != "" {
		name = parts[1]
	}
	return name
}

// methodOrder returns a sort key for HTTP methods (GET first, DELETE last).
func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
