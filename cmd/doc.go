// Package cmd implements the command-line interface for slotbot.
//
// This package provides the following commands:
//   - serve: Start the chat API (HTTP) or the MCP server (stdio)
//   - chat: Talk to a running slotbot backend from the terminal
//   - ask: Answer a single message in-process, without a server
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
package cmd
