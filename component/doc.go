// Package component defines lifecycle-managed parts of a binary.
//
// A Component starts with its binary, stops on shutdown and reports its
// health. The bootstrap package starts registered components in order and
// stops them in reverse.
package component
