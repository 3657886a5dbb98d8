package instrumentation

// RouteUnmatched is the route label for requests that matched no registered route.
const RouteUnmatched = "unmatched"

// RouteLabel returns the label used for an HTTP route in metrics.
// Callers pass the route template (for example gin's FullPath), never the raw URL,
// so arbitrary request paths cannot create new series.
//
// Example:
//
//	RouteLabel("/chat")  // "/chat"
//	RouteLabel("")       // "unmatched"
func RouteLabel(route string) string {
	if route == "" {
		return RouteUnmatched
	}
	return route
}

// Common operation types for calendar metrics.
const (
	OperationList   = "list"
	OperationInsert = "insert"
)
