package sqlscan

import (
	"strings"
	"unicode"
)

// Lexer tokenizes native SQL query text. It is dialect-agnostic on purpose:
// it understands single-quoted strings, three quoting styles for identifiers
// ("x", `x`, [x]), line and block comments, and bind parameters, and reduces
// everything else to generic operator tokens.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if ok := l.skipWhitespaceAndComments(); !ok {
		return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated block comment"}
	}

	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF}
	case '.':
		tok = Token{Type: TOKEN_DOT, Literal: "."}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ","}
	case ';':
		tok = Token{Type: TOKEN_SEMICOLON, Literal: ";"}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")"}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*"}
	case '?':
		tok = Token{Type: TOKEN_PARAM, Literal: "?"}
	case '$', ':', '@':
		prefix := l.ch
		if prefix == ':' && l.peekChar() == ':' {
			// Postgres cast operator, not a parameter.
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_OP, Literal: "::"}
		}
		l.readChar() // advance past the prefix
		start := l.pos
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return Token{Type: TOKEN_PARAM, Literal: string(prefix) + l.input[start:l.pos]}
	case '\'':
		lit, ok := l.readDelimited('\'')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string literal"}
		}
		return Token{Type: TOKEN_STRING, Literal: lit}
	case '"':
		lit, ok := l.readDelimited('"')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated quoted identifier"}
		}
		return Token{Type: TOKEN_IDENT, Literal: lit}
	case '`':
		lit, ok := l.readDelimited('`')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated quoted identifier"}
		}
		return Token{Type: TOKEN_IDENT, Literal: lit}
	case '[':
		return l.readBracketIdentifier()
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			literal := l.readWord()
			return Token{Type: lookupKeyword(strings.ToLower(literal)), Literal: literal}
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber()}
		case isOperatorChar(l.ch):
			tok = Token{Type: TOKEN_OP, Literal: string(l.ch)}
		default:
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch)}
		}
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and SQL comments. Returns false
// when a block comment is never closed.
func (l *Lexer) skipWhitespaceAndComments() bool {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip /
			l.readChar() // skip *
			closed := false
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip *
					l.readChar() // skip /
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				return false
			}
			continue
		}
		return true
	}
}

// readDelimited reads a run delimited by quote, where a doubled quote is an
// escape for an embedded quote. The opening delimiter is the current char.
// Returns false when the input ends before the closing delimiter.
func (l *Lexer) readDelimited(quote byte) (string, bool) {
	l.readChar() // skip opening delimiter
	var result strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing delimiter
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readBracketIdentifier reads a [bracketed] identifier (SQL Server style).
func (l *Lexer) readBracketIdentifier() Token {
	l.readChar() // skip [
	start := l.pos
	for l.ch != ']' && l.ch != 0 {
		l.readChar()
	}
	if l.ch == 0 {
		return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated quoted identifier"}
	}
	lit := l.input[start:l.pos]
	l.readChar() // skip ]
	return Token{Type: TOKEN_IDENT, Literal: lit}
}

// readWord reads an unquoted identifier or keyword.
func (l *Lexer) readWord() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip .
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isOperatorChar(ch byte) bool {
	switch ch {
	case '+', '-', '/', '%', '=', '<', '>', '!', '|', '&', '^', '~', '#', '{', '}':
		return true
	}
	return false
}
