package filter

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokDateTime
	tokDate
	tokTime
	tokUUID
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Bare literal forms, anchored and tried in order. UUID goes first since a
// hex-only prefix would otherwise lex as an identifier or number, and the
// datetime/date/time/number chain goes from most to least specific.
var (
	uuidRe     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	timeRe     = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2}(\.\d+)?)?`)
	numberRe   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?`)
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	switch l.input[l.pos] {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '\'':
		return l.scanString()
	}

	rest := l.input[l.pos:]
	for _, m := range []struct {
		re   *regexp.Regexp
		kind tokenKind
	}{
		{uuidRe, tokUUID},
		{dateTimeRe, tokDateTime},
		{dateRe, tokDate},
		{timeRe, tokTime},
		{numberRe, tokNumber},
		{identRe, tokIdent},
	} {
		if text := m.re.FindString(rest); text != "" {
			l.pos += len(text)
			return token{kind: m.kind, text: text, pos: start}, nil
		}
	}

	return token{}, fmt.Errorf("unexpected character %q at position %d", l.input[l.pos], l.pos)
}

// scanString reads a single-quoted string literal; a doubled quote inside
// the literal stands for one quote character.
func (l *lexer) scanString() (token, error) {
	start := l.pos
	var sb strings.Builder
	i := l.pos + 1
	for i < len(l.input) {
		if l.input[i] != '\'' {
			sb.WriteByte(l.input[i])
			i++
			continue
		}
		if i+1 < len(l.input) && l.input[i+1] == '\'' {
			sb.WriteByte('\'')
			i += 2
			continue
		}
		l.pos = i + 1
		return token{kind: tokString, text: sb.String(), pos: start}, nil
	}
	return token{}, fmt.Errorf("unterminated string literal at position %d", start)
}
