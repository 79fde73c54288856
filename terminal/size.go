package terminal

import (
	"golang.org/x/term"
)

// DetectSize returns the size of the terminal on fd. ok is false when fd is
// not a terminal or its size is unknown.
func DetectSize(fd int) (cols, rows uint32, ok bool) {
	if !term.IsTerminal(fd) {
		return 0, 0, false
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return uint32(w), uint32(h), true
}

// ApplyDetectedSize updates o with the size of the terminal on fd, if any.
func ApplyDetectedSize(o *Options, fd int) bool {
	cols, rows, ok := DetectSize(fd)
	if ok {
		o.SetCols(cols)
		o.SetRows(rows)
	}
	return ok
}
