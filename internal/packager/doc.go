// Package packager turns an Ant binary archive into a macOS installer package.
//
// Ownership boundary:
// - work directory lifecycle
// - package root layout (install prefix and paths.d registration)
// - pkgbuild invocation
package packager
