// Package logger provides leveled console logging for lastwill.
//
// The logger supports verbosity levels controlled by command-line flags.
// Output is prefixed with a colored level tag.
//
// # Verbosity Levels
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages
//
// Warnings and errors are always shown.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Stored %d fragments", count)
//
// Long-running components (the switch monitor, the HTTP service) receive a
// Logger by value in their options. The zero Logger only prints warnings
// and errors.
package logger
