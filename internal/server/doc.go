// Package server exposes the assistant over HTTP and MCP.
//
// # Key Components
//
// ChatHandler serves POST /chat. It accepts {"message", "session_id"} and
// answers {"response"}; a malformed request body is answered with HTTP 500
// and the fixed apology.
//
// HTTPServer is the gin engine holding the chat API, health endpoints and,
// optionally, the MCP streamable HTTP endpoint under /mcp. Its middleware
// adds request ids, CORS, panic recovery, request logging and metrics.
//
// NewMCPServer registers the CheckAvailability and BookSlot tools with an
// mcp-go server so MCP clients can use them over stdio or HTTP.
//
// MetricsServer serves Prometheus metrics on a dedicated port, and
// HealthChecker provides the /healthz, /readyz and /healthz/detailed probes.
package server
