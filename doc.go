// Package skillets executes skillets: declarative lists of snippets
// that parse, validate, and transform device configurations.
//
// The core code is in package 'core', operations beyond the built-ins
// are in 'operations', and command-line tools are in `cmd`.
package skillets
