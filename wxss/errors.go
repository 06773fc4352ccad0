package wxss

import (
	"fmt"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
)

// ErrorKind is the closed registry of stylesheet diagnostics. Codes start
// at 0x10001 and are append-only.
type ErrorKind uint32

const (
	ErrUnexpectedCharacter ErrorKind = 0x10001 + iota
	ErrIllegalImportPosition
)

// Message returns the static human-readable message for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrUnexpectedCharacter:
		return "unexpected character"
	case ErrIllegalImportPosition:
		return "`@import` should be placed at the start of the stylesheet (according to CSS standard)"
	}
	return fmt.Sprintf("unknown error kind 0x%x", uint32(k))
}

// Level returns the fixed severity of the kind.
func (k ErrorKind) Level() parse.ErrorLevel {
	switch k {
	case ErrUnexpectedCharacter:
		return parse.LevelFatal
	case ErrIllegalImportPosition:
		return parse.LevelNote
	}
	return parse.LevelError
}

// Code returns the stable numeric code of the kind.
func (k ErrorKind) Code() uint32 { return uint32(k) }

func (k ErrorKind) String() string { return k.Message() }

// Error is a stylesheet diagnostic.
type Error struct {
	Path     string
	Kind     ErrorKind
	Location ast.Range
}

func (e Error) Error() string {
	return fmt.Sprintf("style sheet parsing error at %s:%d:%d-%d:%d: %s",
		e.Path,
		e.Location.Start.Line+1, e.Location.Start.UTF16Col+1,
		e.Location.End.Line+1, e.Location.End.UTF16Col+1,
		e.Kind.Message(),
	)
}

// Level returns the severity of the diagnostic.
func (e Error) Level() parse.ErrorLevel { return e.Kind.Level() }

// PreventSuccess reports whether the diagnostic prevents a successful
// compilation.
func (e Error) PreventSuccess() bool { return e.Level() >= parse.LevelError }
