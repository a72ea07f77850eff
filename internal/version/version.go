package version

// Version is reported in the MCP initialize handshake.
var Version = "0.1.0"
