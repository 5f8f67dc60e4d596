package minify

import "strings"

type jsState int

const (
	stateCode jsState = iota
	stateLineComment
	stateBlockComment
	stateString
	stateTemplate
)

// JS removes comments and redundant whitespace from a script.
//
// String and template literals are copied verbatim including escapes. A
// whitespace run is dropped unless both neighbours are word characters, where
// one space is kept. When the run contained a newline it is kept as "\n" so
// automatic semicolon insertion still applies. Regular expression literals are
// not recognised.
//
// Two cases go beyond plain word-boundary spacing on purpose: the kept newline
// above, and one space between "+ +" or "- -" so they do not fuse into "++" or
// "--". Both keep the output valid where strict collapsing would break it.
func JS(src string) string {
	var (
		b       strings.Builder
		state   = stateCode
		quote   byte
		pending bool // whitespace seen since the last emitted code byte
		newline bool // that whitespace contained a line break
	)
	b.Grow(len(src))

	flush := func(next byte) {
		if !pending {
			return
		}
		if b.Len() > 0 {
			prev := lastByte(&b)
			switch {
			case newline && needsLineBreak(prev, next):
				b.WriteByte('\n')
			case isWord(prev) && isWord(next):
				b.WriteByte(' ')
			case (prev == '+' || prev == '-') && prev == next:
				// a + +b must not become a++b
				b.WriteByte(' ')
			}
		}
		pending, newline = false, false
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case stateLineComment:
			if c == '\n' {
				state = stateCode
				pending, newline = true, true
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = stateCode
				pending = true
				i++
			} else if c == '\n' {
				newline = true
			}
		case stateString, stateTemplate:
			b.WriteByte(c)
			switch {
			case c == '\\' && i+1 < len(src):
				i++
				b.WriteByte(src[i])
			case c == quote:
				state = stateCode
			}
		default:
			switch {
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = stateBlockComment
				i++
			case isSpace(c):
				pending = true
				if c == '\n' {
					newline = true
				}
			default:
				flush(c)
				b.WriteByte(c)
				switch c {
				case '"', '\'':
					state, quote = stateString, c
				case '`':
					state, quote = stateTemplate, c
				}
			}
		}
	}
	return b.String()
}

// needsLineBreak reports whether a line break between prev and next may end a
// statement. Breaks after an operator or opening bracket, or before a closing
// bracket or operator, never do.
func needsLineBreak(prev, next byte) bool {
	if strings.IndexByte("{(,;:=+-*/%&|!?<>[.", prev) >= 0 {
		return false
	}
	if strings.IndexByte("})],;:=*/%&|?<>.", next) >= 0 {
		return false
	}
	return true
}

func isWord(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func lastByte(b *strings.Builder) byte {
	s := b.String()
	return s[len(s)-1]
}
