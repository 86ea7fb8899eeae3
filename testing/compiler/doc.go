/*
Package compiler builds the service binaries for acceptance tests, so that the
tests exercise the same binary that ships. Binaries are written to a temporary
directory which Cleanup removes.
*/
package compiler
