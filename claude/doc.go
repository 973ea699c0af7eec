// Package claude handles the boundary with the Claude Code CLI: decoding its
// stream-json output lines, classifying tools and result text, and running the
// CLI process itself. The rest of the codebase consumes decoded StreamMessage
// values and the Runner interface; nothing outside this package touches the
// wire format.
package claude
