// Package sqlscan provides a lexical recognizer for table references in
// native SQL queries.
//
// It is deliberately not a parser: the scanner tokenizes the query text,
// excludes string literals and comments, and follows the keywords that
// introduce table references (FROM, JOIN and variants, INSERT INTO, UPDATE).
// Any construct the scanner cannot confidently classify is reported as
// ambiguous so the caller can fail closed; ambiguity never yields a silent
// empty result.
package sqlscan

import "strings"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
// Operator characters that play no role in table-reference scanning are
// collapsed into TOKEN_OP.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected or unterminated construct

	TOKEN_IDENT  // identifier (unquoted, "quoted", `quoted`, or [quoted])
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'
	TOKEN_PARAM  // ?, $1, :name, @var bind parameters

	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_STAR      // *
	TOKEN_OP        // any other operator or punctuation

	// TOKEN_AS and below are the SQL keywords the scanner interprets
	// (alphabetical). Every other word is a plain TOKEN_IDENT.
	TOKEN_AS
	TOKEN_CROSS
	TOKEN_DELETE
	TOKEN_EXCEPT
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_INNER
	TOKEN_INSERT
	TOKEN_INTERSECT
	TOKEN_INTO
	TOKEN_JOIN
	TOKEN_LATERAL
	TOKEN_LEFT
	TOKEN_LIMIT
	TOKEN_MERGE
	TOKEN_NATURAL
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_RECURSIVE
	TOKEN_RIGHT
	TOKEN_SELECT
	TOKEN_SET
	TOKEN_UNION
	TOKEN_UPDATE
	TOKEN_USING
	TOKEN_VALUES
	TOKEN_WHERE
	TOKEN_WITH
)

// Token is one lexical token. Literal holds the token text; for quoted
// identifiers and strings the quotes are stripped and escapes resolved.
type Token struct {
	Type    TokenType
	Literal string
}

var keywords = map[string]TokenType{
	"as":        TOKEN_AS,
	"cross":     TOKEN_CROSS,
	"delete":    TOKEN_DELETE,
	"except":    TOKEN_EXCEPT,
	"from":      TOKEN_FROM,
	"full":      TOKEN_FULL,
	"group":     TOKEN_GROUP,
	"having":    TOKEN_HAVING,
	"inner":     TOKEN_INNER,
	"insert":    TOKEN_INSERT,
	"intersect": TOKEN_INTERSECT,
	"into":      TOKEN_INTO,
	"join":      TOKEN_JOIN,
	"lateral":   TOKEN_LATERAL,
	"left":      TOKEN_LEFT,
	"limit":     TOKEN_LIMIT,
	"merge":     TOKEN_MERGE,
	"natural":   TOKEN_NATURAL,
	"offset":    TOKEN_OFFSET,
	"on":        TOKEN_ON,
	"order":     TOKEN_ORDER,
	"outer":     TOKEN_OUTER,
	"recursive": TOKEN_RECURSIVE,
	"right":     TOKEN_RIGHT,
	"select":    TOKEN_SELECT,
	"set":       TOKEN_SET,
	"union":     TOKEN_UNION,
	"update":    TOKEN_UPDATE,
	"using":     TOKEN_USING,
	"values":    TOKEN_VALUES,
	"where":     TOKEN_WHERE,
	"with":      TOKEN_WITH,
}

// lookupKeyword returns the keyword token type for a lower-cased word, or
// TOKEN_IDENT when the word is not a keyword the scanner cares about.
func lookupKeyword(word string) TokenType {
	if tt, ok := keywords[word]; ok {
		return tt
	}
	return TOKEN_IDENT
}

// IsKeyword reports whether the token type is a SQL keyword.
func (t TokenType) IsKeyword() bool { return t >= TOKEN_AS }

// Fold normalizes an identifier for case-insensitive comparison.
func Fold(ident string) string { return strings.ToLower(ident) }
