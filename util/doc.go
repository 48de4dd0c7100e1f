// Package util holds small helpers shared across the module: byte size
// parsing and formatting, secret masking for logs, and file name cleanup.
package util
