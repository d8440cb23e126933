package expr

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tEOF tokenType = iota
	tNumber
	tString
	tColor
	tIdent
	tPunct
)

type token struct {
	typ  tokenType
	text string
	pos  int
}

// SyntaxError is returned by Parse.
type SyntaxError struct {
	Src string
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expression %q at %d: %s", e.Src, e.Pos, e.Msg)
}

// longest first
var puncts = []string{
	"&&", "||", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", "?", ".",
	"!", "+", "-", "*", "/", "%", "<", ">", "=",
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			// unit suffix
			for i < len(src) && (isIdentStart(src[i]) || src[i] == '%') {
				i++
			}
			toks = append(toks, token{typ: tNumber, text: src[start:i], pos: start})
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return nil, &SyntaxError{Src: src, Pos: start, Msg: "unterminated string"}
			}
			i++
			toks = append(toks, token{typ: tString, text: src[start:i], pos: start})
		case c == '#':
			start := i
			i++
			for i < len(src) && isHex(src[i]) {
				i++
			}
			toks = append(toks, token{typ: tColor, text: src[start:i], pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{typ: tIdent, text: src[start:i], pos: start})
		default:
			matched := false
			for _, p := range puncts {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{typ: tPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, &SyntaxError{Src: src, Pos: i, Msg: fmt.Sprintf("unexpected %q", c)}
			}
		}
	}
	toks = append(toks, token{typ: tEOF, pos: len(src)})
	return toks, nil
}
