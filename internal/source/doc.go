// Package source resolves where an Ant binary archive comes from.
//
// Ownership boundary:
// - archive naming convention (version and top-level directory)
// - local open and remote download into a work directory
// - digest verification
package source
