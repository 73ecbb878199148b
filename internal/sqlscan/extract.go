package sqlscan

import "fmt"

// RawReference is one lexical table reference recovered from a query:
// an optionally schema-qualified name with an optional alias. Nothing is
// resolved at this stage; names are reported exactly as written.
type RawReference struct {
	Schema string
	Name   string
	Alias  string
}

// Extraction is the result of scanning one query. Refs is a conservative
// superset of the table references in the query. Aliases holds the
// case-folded alias and common-table-expression names seen during the scan;
// they are candidates for filtering during resolution, since an alias is not
// a table. Ambiguous lists every construct the scanner could not confidently
// classify: a non-empty list must force a deny downstream.
type Extraction struct {
	Refs      []RawReference
	Aliases   map[string]bool
	Ambiguous []string
}

// IsAmbiguous reports whether the scan hit any construct it could not classify.
func (e *Extraction) IsAmbiguous() bool { return len(e.Ambiguous) > 0 }

func (e *Extraction) addRef(ref RawReference) {
	for _, r := range e.Refs {
		if r == ref {
			return
		}
	}
	e.Refs = append(e.Refs, ref)
}

func (e *Extraction) addAlias(name string) {
	e.Aliases[Fold(name)] = true
}

func (e *Extraction) ambiguous(format string, args ...interface{}) {
	e.Ambiguous = append(e.Ambiguous, fmt.Sprintf(format, args...))
}

// Extract scans query text and returns the conservative set of table
// references it contains. It is a pure function: no catalog, network, or
// storage access. Matching references against real tables is the resolver's
// job.
func Extract(query string) *Extraction {
	lex := NewLexer(query)
	var toks []Token
	for {
		tok := lex.NextToken()
		toks = append(toks, tok)
		if tok.Type == TOKEN_EOF {
			break
		}
	}

	s := &scanner{
		toks: toks,
		out:  &Extraction{Aliases: make(map[string]bool)},
	}
	s.run(false)
	return s.out
}

// scanner walks the token stream with a small amount of state: the previous
// significant token (to spot statement heads) and the current paren nesting,
// handled by recursion in run.
type scanner struct {
	toks []Token
	i    int
	out  *Extraction
	prev TokenType
}

func (s *scanner) cur() Token {
	if s.i >= len(s.toks) {
		return Token{Type: TOKEN_EOF}
	}
	return s.toks[s.i]
}

// advance consumes the current token, remembering it as the previous
// significant token.
func (s *scanner) advance() {
	s.prev = s.cur().Type
	s.i++
}

// atStatementHead reports whether the current token begins a statement:
// start of input, after a semicolon, after an opening paren, or after a
// closing paren (the end of a WITH clause body).
func (s *scanner) atStatementHead() bool {
	switch s.prev {
	case TOKEN_EOF, TOKEN_SEMICOLON, TOKEN_LPAREN, TOKEN_RPAREN:
		return true
	}
	return false
}

// run scans tokens until end of input, or until the paren group opened by
// the caller closes when insideParens is set.
func (s *scanner) run(insideParens bool) {
	for {
		tok := s.cur()
		switch tok.Type {
		case TOKEN_EOF:
			if insideParens {
				s.out.ambiguous("unbalanced parentheses")
			}
			return
		case TOKEN_RPAREN:
			if insideParens {
				s.advance()
				return
			}
			s.advance()
		case TOKEN_LPAREN:
			s.advance()
			s.run(true)
		case TOKEN_ILLEGAL:
			s.out.ambiguous("%s", tok.Literal)
			s.advance()
		case TOKEN_WITH:
			s.advance()
			s.scanWith()
		case TOKEN_FROM:
			s.advance()
			s.scanFromList()
		case TOKEN_JOIN:
			s.advance()
			s.scanTableRef()
		case TOKEN_INTO:
			s.advance()
			s.scanTableRef()
		case TOKEN_UPDATE:
			head := s.atStatementHead()
			s.advance()
			// UPDATE introduces a table only as a statement head;
			// elsewhere it is part of e.g. SELECT ... FOR UPDATE.
			if head {
				s.scanTableRef()
			}
		case TOKEN_MERGE:
			// MERGE reads its USING source, which the scanner does
			// not track, so the statement cannot be checked table
			// by table.
			if s.atStatementHead() {
				s.out.ambiguous("MERGE statement")
			}
			s.advance()
		default:
			s.advance()
		}
	}
}

// scanFromList scans the comma-separated table list after FROM, covering
// old-style implicit joins.
func (s *scanner) scanFromList() {
	for {
		s.scanTableRef()
		if s.cur().Type != TOKEN_COMMA {
			return
		}
		s.advance()
	}
}

// scanTableRef classifies the tokens at a table-reference position.
// Identifier chains become references; derived tables are scanned through
// (their inner FROM clauses are picked up by the same walk, and the
// derived-table alias is recorded as a non-table name); anything else is
// reported as ambiguous.
func (s *scanner) scanTableRef() {
	if s.cur().Type == TOKEN_LATERAL {
		s.advance()
	}

	tok := s.cur()
	switch tok.Type {
	case TOKEN_LPAREN:
		s.advance()
		switch s.cur().Type {
		case TOKEN_SELECT, TOKEN_WITH, TOKEN_VALUES:
			// Derived table: the inner FROM clauses are collected by the
			// same walk, and the alias names a result set, not a table.
			s.run(true)
		case TOKEN_IDENT, TOKEN_LPAREN, TOKEN_LATERAL:
			// Parenthesized join: the operands are themselves table
			// references and must not be lost.
			s.scanFromList()
			s.run(true)
		default:
			s.out.ambiguous("cannot classify parenthesized table expression")
			s.run(true)
		}
		if alias := s.parseAlias(); alias != "" {
			s.out.addAlias(alias)
		}
		return
	case TOKEN_IDENT:
		s.scanNamedRef(tok.Literal)
		return
	case TOKEN_STRING:
		s.out.ambiguous("string literal in table position")
	case TOKEN_PARAM:
		s.out.ambiguous("bind parameter %q in table position", tok.Literal)
	case TOKEN_EOF, TOKEN_RPAREN, TOKEN_SEMICOLON:
		s.out.ambiguous("missing table reference")
		return
	default:
		s.out.ambiguous("cannot classify %q in table position", tok.Literal)
	}
	s.advance()
}

// scanNamedRef consumes an identifier chain starting at the current IDENT
// token: name, schema.name, or a function call (ambiguous).
func (s *scanner) scanNamedRef(first string) {
	s.advance()

	if s.cur().Type == TOKEN_LPAREN {
		// Table-valued function: not a table the catalog can vouch for.
		s.out.ambiguous("table function %q in table position", first)
		s.advance()
		s.run(true)
		if alias := s.parseAlias(); alias != "" {
			s.out.addAlias(alias)
		}
		return
	}

	ref := RawReference{Name: first}
	if s.cur().Type == TOKEN_DOT {
		s.advance()
		part := s.cur()
		if part.Type != TOKEN_IDENT {
			s.out.ambiguous("malformed qualified name after %q", first)
			return
		}
		s.advance()
		if s.cur().Type == TOKEN_DOT {
			// database.schema.table: cross-database references are out
			// of scope for a single data source's catalog.
			s.out.ambiguous("cross-database reference %q.%q.…", first, part.Literal)
			for s.cur().Type == TOKEN_DOT {
				s.advance()
				if s.cur().Type == TOKEN_IDENT {
					s.advance()
				}
			}
			return
		}
		ref = RawReference{Schema: first, Name: part.Literal}
	}

	if alias := s.parseAlias(); alias != "" {
		ref.Alias = alias
		s.out.addAlias(alias)
	}
	s.out.addRef(ref)
}

// parseAlias consumes an optional alias: AS ident, or a bare identifier.
// Keywords never count as bare aliases, so FROM a JOIN b stays intact.
func (s *scanner) parseAlias() string {
	switch s.cur().Type {
	case TOKEN_AS:
		s.advance()
		tok := s.cur()
		if tok.Type != TOKEN_IDENT {
			s.out.ambiguous("malformed alias after AS")
			return ""
		}
		s.advance()
		return tok.Literal
	case TOKEN_IDENT:
		tok := s.cur()
		s.advance()
		return tok.Literal
	}
	return ""
}

// scanWith consumes the head of a WITH clause, registering each
// common-table-expression name as a non-table alias. The CTE bodies are
// scanned by run, so tables referenced inside them are still collected.
func (s *scanner) scanWith() {
	if s.cur().Type == TOKEN_RECURSIVE {
		// Recursive CTEs reference their own head; classifying them
		// confidently needs more than a lexical scan.
		s.out.ambiguous("recursive common table expression")
		s.advance()
	}

	for {
		name := s.cur()
		if name.Type != TOKEN_IDENT {
			s.out.ambiguous("malformed WITH clause")
			return
		}
		s.out.addAlias(name.Literal)
		s.advance()

		// Optional column list: name (a, b) AS (...)
		if s.cur().Type == TOKEN_LPAREN {
			s.skipBalanced()
		}

		if s.cur().Type != TOKEN_AS {
			s.out.ambiguous("malformed WITH clause: expected AS after %q", name.Literal)
			return
		}
		s.advance()

		// Optional [NOT] MATERIALIZED hint.
		for s.cur().Type == TOKEN_IDENT {
			switch Fold(s.cur().Literal) {
			case "not", "materialized":
				s.advance()
				continue
			}
			break
		}

		if s.cur().Type != TOKEN_LPAREN {
			s.out.ambiguous("malformed WITH clause: expected subquery for %q", name.Literal)
			return
		}
		s.advance()
		s.run(true) // scan the CTE body

		if s.cur().Type != TOKEN_COMMA {
			return
		}
		s.advance()
	}
}

// skipBalanced consumes a balanced paren group without interpreting it.
// Used only for CTE column lists, which cannot contain table references.
func (s *scanner) skipBalanced() {
	depth := 0
	for {
		switch s.cur().Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth == 0 {
				s.advance()
				return
			}
		case TOKEN_EOF:
			s.out.ambiguous("unbalanced parentheses")
			return
		}
		s.advance()
	}
}
