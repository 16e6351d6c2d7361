package wasm

import "fmt"

// SectionError reports a structural failure while loading a module: a
// malformed header, an oversized LEB128, an index out of range, or a
// section whose declared size didn't match the bytes actually consumed
// (spec.md §7, "Structural"/"Index"/"Encoding" error kinds).
type SectionError struct {
	// SectionID is the section the failure occurred in, or -1 for failures
	// before any section is read (magic/version).
	SectionID int
	Msg       string
	Err       error
}

func (e *SectionError) Error() string {
	if e.SectionID < 0 {
		return e.Msg
	}
	return fmt.Sprintf("section %d: %s", e.SectionID, e.Msg)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// NewSectionError builds a SectionError with no wrapped cause.
func NewSectionError(sectionID int, msg string) *SectionError {
	return &SectionError{SectionID: sectionID, Msg: msg}
}

// WrapSectionError builds a SectionError wrapping err.
func WrapSectionError(sectionID int, msg string, err error) *SectionError {
	return &SectionError{SectionID: sectionID, Msg: msg, Err: err}
}
