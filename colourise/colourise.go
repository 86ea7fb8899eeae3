// Package colourise adorns terminal output with ANSI colour escapes.
package colourise

import (
	"fmt"
	"hash/crc32"
)

// palette is the 256 colour codes that read well against a black background.
var palette = func() []uint8 {
	var p []uint8
	for _, r := range [][2]uint8{{9, 14}, {21, 51}, {63, 144}, {146, 231}} {
		for c := r[0]; c <= r[1]; c++ {
			p = append(p, c)
		}
	}
	return p
}()

const reset = "\033[0m"

// ApplyColour colours value with a colour picked by hashing it, so the same
// value, such as a trace id or span name, is always the same colour.
func ApplyColour(value string) string {
	i := crc32.ChecksumIEEE([]byte(value)) % uint32(len(palette))
	return fmt.Sprintf("\033[1;38;5;%dm%s%s", palette[i], value, reset)
}

// ErrorHighlight renders s as white on red.
func ErrorHighlight(s string) string {
	return "\033[1;37;41m" + s + reset
}

// WarningHighlight renders s as black on yellow.
func WarningHighlight(s string) string {
	return "\033[1;30;43m" + s + reset
}
