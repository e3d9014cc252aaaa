// Package archive extracts Ant binary archives into a package root.
//
// Entries are remapped from the archive's top-level directory onto a
// destination directory. Permission bits are copied from the archive;
// nothing is allowed to land outside the destination.
package archive
