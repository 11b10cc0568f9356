// Package ui provides semantic text formatting for CLI output.
//
// Formatters render content according to what it is (commands, paths,
// switch states) rather than how it should look. When colors are available
// content is colorized; when NO_COLOR is set or the terminal does not
// support colors, text decorations (backticks, quotes, brackets) are used
// instead.
//
//	ui.Code.Sprint("lastwill ping")          // Commands
//	ui.Path.Sprint("data/last_seen.txt")     // File paths
//	ui.Highlight.Sprint("nominee@example.com")
//	ui.Status("SAFE")                        // Switch states
//
// Colors are disabled when NO_COLOR is set (any value) or when the terminal
// does not support them (TERM=dumb, not a TTY).
package ui
