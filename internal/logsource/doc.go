// Package logsource reads Data Monitor VDR logs.
//
// A log is newline-delimited text. Blank lines and lines whose first
// non-blank character is '#' are ignored; the first remaining line is a CSV
// header and every following line is one CSV record. A Reader holds a single
// file handle for its whole life and restarts with Rewind.
package logsource
