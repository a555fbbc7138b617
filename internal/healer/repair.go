package healer

import (
	"regexp"
	"strings"
)

// Step is one pure rewrite of near-JSON text.
type Step func(string) string

// Steps run in this order; each is safe to apply to already-valid JSON.
var Steps = []Step{
	TrimToObject,
	StripControlChars,
	MergeBrokenStrings,
	StripArrayNewlines,
	FlattenStringNewlines,
	CloseOpenString,
	CloseBrackets,
	RemoveTrailingCommas,
	CollapseDoubleCommas,
}

// Repair applies Steps until the text stops changing (bounded), so that
// Repair(Repair(x)) == Repair(x).
func Repair(raw string) string {
	for pass := 0; pass < 4; pass++ {
		next := raw
		for _, step := range Steps {
			next = step(next)
		}
		if next == raw {
			break
		}
		raw = next
	}
	return raw
}

// lexer tracks whether a byte offset sits inside a JSON string literal.
type lexer struct {
	inString bool
	escaped  bool
}

// next consumes c and reports whether it is outside any string literal
// (quotes themselves are never structural).
func (l *lexer) next(c byte) bool {
	if l.inString {
		switch {
		case l.escaped:
			l.escaped = false
		case c == '\\':
			l.escaped = true
		case c == '"':
			l.inString = false
		}
		return false
	}
	if c == '"' {
		l.inString = true
		return false
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// TrimToObject drops everything before the first '{'. When the object is
// balanced, everything after its closing brace goes too; otherwise the text
// is cut after the last '}' if there is one.
func TrimToObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	s = s[start:]

	var lx lexer
	depth := 0
	for i := 0; i < len(s); i++ {
		if !lx.next(s[i]) {
			continue
		}
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	if end := strings.LastIndexByte(s, '}'); end >= 0 {
		return s[:end+1]
	}
	return s
}

// StripControlChars removes carriage returns and turns other control
// characters except newline into spaces.
func StripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\r':
		case c < 0x20 && c != '\n':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// MergeBrokenStrings repairs a string literal followed, across a newline, by
// another one with nothing in between. Inside an array the two become
// separate elements; elsewhere they are joined into one string by a space.
func MergeBrokenStrings(s string) string {
	var (
		b     strings.Builder
		lx    lexer
		stack []byte
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		wasIn := lx.inString
		if lx.next(c) {
			switch c {
			case '{', '[':
				stack = append(stack, c)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
		if wasIn && !lx.inString {
			j, newline := i+1, false
			for j < len(s) && isSpace(s[j]) {
				newline = newline || s[j] == '\n'
				j++
			}
			if newline && j < len(s) && s[j] == '"' {
				if len(stack) > 0 && stack[len(stack)-1] == '[' {
					b.WriteString(`", `)
					i = j - 1
				} else {
					b.WriteByte(' ')
					i = j
					lx.inString = true
				}
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

var (
	openArrayNewline  = regexp.MustCompile(`\[\s*\n`)
	closeArrayNewline = regexp.MustCompile(`\n\s*\]`)
)

// StripArrayNewlines removes newlines directly inside array delimiters.
func StripArrayNewlines(s string) string {
	s = openArrayNewline.ReplaceAllString(s, "[")
	return closeArrayNewline.ReplaceAllString(s, "]")
}

// FlattenStringNewlines replaces raw newlines and tabs inside string literals
// with spaces. A backslash directly before a raw newline becomes a \n escape.
func FlattenStringNewlines(s string) string {
	var (
		b  strings.Builder
		lx lexer
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lx.inString && (c == '\n' || c == '\t') {
			if lx.escaped {
				lx.escaped = false
				b.WriteByte('n')
				continue
			}
			b.WriteByte(' ')
			continue
		}
		lx.next(c)
		b.WriteByte(c)
	}
	return b.String()
}

// CloseOpenString terminates a string literal left open at the end of the
// text, dropping a dangling escape first.
func CloseOpenString(s string) string {
	var lx lexer
	for i := 0; i < len(s); i++ {
		lx.next(s[i])
	}
	if !lx.inString {
		return s
	}
	if lx.escaped {
		s = s[:len(s)-1]
	}
	return s + `"`
}

// CloseBrackets appends the closers for every '{' and '[' still open, in
// nesting order. Stray closers are left alone.
func CloseBrackets(s string) string {
	var (
		lx    lexer
		stack []byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !lx.next(c) {
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}
	if len(stack) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(s, " \n\t"))
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// RemoveTrailingCommas drops commas (and runs of commas) that directly
// precede a closing bracket or brace.
func RemoveTrailingCommas(s string) string {
	var (
		b  strings.Builder
		lx lexer
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lx.next(c) && c == ',' {
			j := i + 1
			for j < len(s) && (isSpace(s[j]) || s[j] == ',') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CollapseDoubleCommas keeps one comma out of a run separated only by
// whitespace.
func CollapseDoubleCommas(s string) string {
	var (
		b  strings.Builder
		lx lexer
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lx.next(c) && c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && s[j] == ',' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
