// Package launcher assembles and runs the Java command line that starts Ant.
//
// Ownership boundary:
// - environment and conf-file resolution into an explicit Config
// - classpath and option assembly
// - handing the process to the OS and reporting its exit status
package launcher
