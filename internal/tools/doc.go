// Package tools provides the process helpers shared by antpkg and runant.
//
// Ownership boundary:
// - external command execution (captured and attached)
//
// - exit status propagation
//
// - shell-quoted rendering of argument vectors
package tools
