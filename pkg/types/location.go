package types

import "fmt"

// Location identifies the start of a declaration in source. Line is 1-based,
// Column is 0-based, matching the positions reported by the scanner.
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location in file:line:column form, the shape printed
// for every match.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
