package domain

import "strconv"

// Location represents a position in source code.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine,omitempty"`
	StartCol  int    `json:"startCol,omitempty"`
	EndCol    int    `json:"endCol,omitempty"`
}

// String returns the "file:line" form used by line filters.
func (l Location) String() string {
	return l.File + ":" + strconv.Itoa(l.StartLine)
}

// Script is an opaque reference to user code. Only the executor interprets Body.
type Script struct {
	Body     string   `json:"body"`
	Location Location `json:"location"`
}
