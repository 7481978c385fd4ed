// Package mcp serves the note analyzer over the Model Context Protocol.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// on the stdio transport and registers three tools: analyze_note,
// list_fields and lookup_field. Tool calls are counted and timed through
// OpenTelemetry; see Metrics.
package mcp
