package parse

import (
	"fmt"

	"github.com/wxtool/wxc/ast"
)

// ErrorLevel classifies how a diagnostic affects compilation.
type ErrorLevel int

const (
	// LevelNote marks a likely mistake; the generator may still emit code
	// that exhibits the diagnosed behavior.
	LevelNote ErrorLevel = iota + 1
	// LevelWarn marks a mistake the compiler corrects best-effort.
	LevelWarn
	// LevelError prevents a successful compilation; parsing continues to
	// find more errors.
	LevelError
	// LevelFatal marks errors such as unbalanced delimiters after which
	// the parser cannot make useful progress in the current construct.
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelNote:
		return "note"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ErrorKind is the closed registry of template diagnostics. Numeric codes
// start at 0x10001 and are append-only; downstream tooling keys on them.
type ErrorKind uint32

const (
	ErrUnexpectedCharacter ErrorKind = 0x10001 + iota
	ErrUnexpectedExpressionCharacter
	ErrUnknownMetaTag
	ErrMissingExpressionEnd
	ErrIllegalEntity
	ErrIncompleteTag
	ErrMissingEndTag
	ErrIllegalNamePrefix
	ErrInvalidAttributePrefix
	ErrInvalidAttributeName
	ErrInvalidAttributeValue
	ErrInvalidAttribute
	ErrDuplicatedAttribute
	ErrDuplicatedName
	ErrAvoidUppercaseLetters
	ErrUnexpectedWhitespace
	ErrMissingAttributeValue
	ErrDataBindingNotAllowed
	ErrInvalidIdentifier
	ErrInvalidScopeName
	ErrChildNodesNotAllowed
	ErrIllegalEscapeSequence
	ErrIncompleteConditionExpression
	ErrUnmatchedBracket
	ErrUnmatchedParenthesis
	ErrMissingModuleName
	ErrMissingSourcePath
	ErrUnsupportedSyntax
	ErrShouldQuoted
	ErrEmptyExpression
	ErrInvalidEndTag
)

var errorKindMessages = map[ErrorKind]string{
	ErrUnexpectedCharacter:           "unexpected character",
	ErrUnexpectedExpressionCharacter: "unexpected character inside expression",
	ErrUnknownMetaTag:                "unknown meta tag",
	ErrMissingExpressionEnd:          "missing expression end",
	ErrIllegalEntity:                 "illegal entity",
	ErrIncompleteTag:                 "incomplete tag",
	ErrMissingEndTag:                 "missing end tag",
	ErrIllegalNamePrefix:             "illegal name prefix",
	ErrInvalidAttributePrefix:        "invalid attribute prefix",
	ErrInvalidAttributeName:          "invalid attribute name",
	ErrInvalidAttributeValue:         "invalid attribute value",
	ErrInvalidAttribute:              "invalid attribute",
	ErrDuplicatedAttribute:           "duplicated attribute",
	ErrDuplicatedName:                "duplicated name",
	ErrAvoidUppercaseLetters:         "avoid uppercase letters",
	ErrUnexpectedWhitespace:          "unexpected whitespace",
	ErrMissingAttributeValue:         "missing attribute value",
	ErrDataBindingNotAllowed:         "data bindings are not allowed for this attribute",
	ErrInvalidIdentifier:             "not a valid identifier",
	ErrInvalidScopeName:              "not a valid identifier as scope name",
	ErrChildNodesNotAllowed:          "child nodes are not allowed for this element",
	ErrIllegalEscapeSequence:         "illegal escape sequence",
	ErrIncompleteConditionExpression: "incomplete condition expression",
	ErrUnmatchedBracket:              "unmatched bracket",
	ErrUnmatchedParenthesis:          "unmatched parenthesis",
	ErrMissingModuleName:             "missing module name",
	ErrMissingSourcePath:             "missing source path",
	ErrUnsupportedSyntax:             "this syntax has not been supported yet",
	ErrShouldQuoted:                  "should be quoted",
	ErrEmptyExpression:               "the expression is empty",
	ErrInvalidEndTag:                 "invalid end tag",
}

var errorKindLevels = map[ErrorKind]ErrorLevel{
	ErrUnexpectedCharacter:           LevelFatal,
	ErrUnexpectedExpressionCharacter: LevelFatal,
	ErrUnknownMetaTag:                LevelNote,
	ErrMissingExpressionEnd:          LevelFatal,
	ErrIllegalEntity:                 LevelError,
	ErrIncompleteTag:                 LevelFatal,
	ErrMissingEndTag:                 LevelWarn,
	ErrIllegalNamePrefix:             LevelWarn,
	ErrInvalidAttributePrefix:        LevelWarn,
	ErrInvalidAttributeName:          LevelWarn,
	ErrInvalidAttributeValue:         LevelNote,
	ErrInvalidAttribute:              LevelWarn,
	ErrDuplicatedAttribute:           LevelWarn,
	ErrDuplicatedName:                LevelNote,
	ErrAvoidUppercaseLetters:         LevelNote,
	ErrUnexpectedWhitespace:          LevelNote,
	ErrMissingAttributeValue:         LevelNote,
	ErrDataBindingNotAllowed:         LevelNote,
	ErrInvalidIdentifier:             LevelFatal,
	ErrInvalidScopeName:              LevelNote,
	ErrChildNodesNotAllowed:          LevelError,
	ErrIllegalEscapeSequence:         LevelError,
	ErrIncompleteConditionExpression: LevelFatal,
	ErrUnmatchedBracket:              LevelFatal,
	ErrUnmatchedParenthesis:          LevelFatal,
	ErrMissingModuleName:             LevelError,
	ErrMissingSourcePath:             LevelError,
	ErrUnsupportedSyntax:             LevelError,
	ErrShouldQuoted:                  LevelWarn,
	ErrEmptyExpression:               LevelWarn,
	ErrInvalidEndTag:                 LevelWarn,
}

// Message returns the static human-readable message for the kind.
func (k ErrorKind) Message() string {
	if m, ok := errorKindMessages[k]; ok {
		return m
	}
	return fmt.Sprintf("unknown error kind 0x%x", uint32(k))
}

// Level returns the fixed severity of the kind.
func (k ErrorKind) Level() ErrorLevel {
	if l, ok := errorKindLevels[k]; ok {
		return l
	}
	return LevelError
}

// Code returns the stable numeric code of the kind.
func (k ErrorKind) Code() uint32 { return uint32(k) }

func (k ErrorKind) String() string { return k.Message() }

// Error is a template diagnostic: a kind plus the source range it covers.
type Error struct {
	Path     string
	Kind     ErrorKind
	Location ast.Range
}

func (e Error) Error() string {
	return fmt.Sprintf("template parsing error at %s:%d:%d-%d:%d: %s",
		e.Path,
		e.Location.Start.Line+1, e.Location.Start.UTF16Col+1,
		e.Location.End.Line+1, e.Location.End.UTF16Col+1,
		e.Kind.Message(),
	)
}

// Level returns the severity of the diagnostic.
func (e Error) Level() ErrorLevel { return e.Kind.Level() }

// PreventSuccess reports whether the diagnostic prevents a successful
// compilation.
func (e Error) PreventSuccess() bool { return e.Level() >= LevelError }
