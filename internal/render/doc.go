// Package render formats agent results for the terminal.
package render
