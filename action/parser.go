package action

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/sovereign/core"
)

// Marker introduces an action expression in reasoning text.
const Marker = "Action:"

// Parser extracts Actions from reasoning text.
type Parser struct {
	// Strict turns text without an action marker into a malformed_action
	// instead of a final answer.
	Strict bool
	// Declared reports whether tool accepts the parameter key. When set,
	// `k=v` and `k: v` lists are only read as keywords if their leading key
	// is declared; any other text is a single positional argument. Nil
	// accepts every identifier. final_answer always declares only content.
	Declared func(tool, key string) bool
}

// Parse converts text into exactly one Action. It never fails.
func (p Parser) Parse(text string) core.Action {
	idx := strings.Index(text, Marker)
	if idx < 0 {
		return p.Unmarked(text)
	}

	expr := strings.TrimLeft(text[idx+len(Marker):], " \t\r\n")
	if nl := strings.IndexByte(expr, '\n'); nl >= 0 {
		expr = expr[:nl]
	}
	expr = strings.TrimSpace(expr)

	open := strings.IndexByte(expr, '(')
	if open < 0 {
		return p.Unmarked(text)
	}
	name := strings.Trim(strings.TrimSpace(expr[:open]), "`")
	if name == "" {
		return p.Unmarked(text)
	}

	body := argumentList(expr[open+1:])
	params := parseParams(strings.TrimSpace(body), p.declared(name))
	if name == core.ActionFinalAnswer {
		params = answerParams(params)
	}
	return core.Action{Name: name, Params: params}
}

// Unmarked is the fallback policy for text that carries no action marker.
// Permissive parsers treat the whole text as the final answer; strict parsers
// yield a malformed_action so the loop can ask for a corrected step.
func (p Parser) Unmarked(text string) core.Action {
	if p.Strict {
		return core.Action{Name: core.ActionMalformed, Params: map[string]any{core.RawKey: text}}
	}
	return core.NewFinalAnswer(text)
}

func (p Parser) declared(tool string) func(key string) bool {
	if tool == core.ActionFinalAnswer {
		return func(key string) bool { return key == core.AnswerKey }
	}
	if p.Declared == nil {
		return nil
	}
	return func(key string) bool { return p.Declared(tool, key) }
}

// argumentList returns the text up to the parenthesis closing the list that
// s follows. Quoted text is skipped; when that leaves the list open a
// quote-blind scan is tried, and failing both the list runs to the end.
func argumentList(s string) string {
	if i := closingParen(s, true); i >= 0 {
		return s[:i]
	}
	if i := closingParen(s, false); i >= 0 {
		return s[:i]
	}
	return s
}

func closingParen(s string, quotes bool) int {
	depth := 1
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case quotes && (c == '\'' || c == '"'):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseParams parses the body of a parenthesized argument list, reading any
// `k=v` list as keywords.
func ParseParams(body string) map[string]any {
	return parseParams(body, nil)
}

func parseParams(body string, declared func(key string) bool) map[string]any {
	if body == "" {
		return nil
	}
	if body[0] == '{' {
		return parseObject(body)
	}
	if key, ok := leadingKeyword(body); ok && (declared == nil || declared(key)) {
		if m, ok := parseKeywords(body); ok {
			return m
		}
		return map[string]any{core.RawKey: body}
	}
	if s, ok := unquote(body); ok {
		return map[string]any{core.PositionalKey: s}
	}
	return map[string]any{core.RawKey: body}
}

func parseObject(body string) map[string]any {
	for _, candidate := range []string{body, strings.ReplaceAll(body, "'", `"`)} {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsObject() {
			continue
		}
		if m, ok := res.Value().(map[string]any); ok {
			return m
		}
	}
	return map[string]any{core.RawKey: body}
}

// leadingKeyword returns the identifier body starts with when it is followed
// by '=' or ':'.
func leadingKeyword(body string) (string, bool) {
	i := 0
	for i < len(body) && isIdentByte(body[i]) {
		i++
	}
	if i == 0 {
		return "", false
	}
	rest := strings.TrimLeft(body[i:], " \t")
	if rest == "" || (rest[0] != '=' && rest[0] != ':') {
		return "", false
	}
	return body[:i], true
}

func parseKeywords(body string) (map[string]any, bool) {
	elems, ok := splitTopLevel(body, ',')
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(elems))
	for _, el := range elems {
		el = strings.TrimSpace(el)
		if el == "" {
			continue
		}
		sep := strings.IndexAny(el, "=:")
		if sep <= 0 {
			return nil, false
		}
		key := strings.TrimSpace(el[:sep])
		if !isIdent(key) {
			return nil, false
		}
		val, ok := parseScalar(strings.TrimSpace(el[sep+1:]))
		if !ok {
			return nil, false
		}
		out[key] = val
	}
	return out, true
}

func parseScalar(v string) (any, bool) {
	if v == "" {
		return "", true
	}
	if v[0] == '\'' || v[0] == '"' {
		return unquote(v)
	}
	if v == "true" || v == "false" || v == "null" || isNumber(v) {
		return gjson.Parse(v).Value(), true
	}
	return v, true
}

// splitTopLevel splits s on sep outside of quotes. It reports false when a
// quote is left open.
func splitTopLevel(s string, sep byte) ([]string, bool) {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, false
	}
	return append(parts, s[start:]), true
}

// unquote strips one pair of matching surrounding quotes. Bare text is
// returned unchanged; an opening quote without its partner reports false.
func unquote(s string) (string, bool) {
	if s == "" {
		return s, true
	}
	q := s[0]
	if q != '\'' && q != '"' {
		return s, true
	}
	if len(s) < 2 || s[len(s)-1] != q {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func answerParams(params map[string]any) map[string]any {
	if len(params) != 1 {
		return params
	}
	for _, key := range []string{core.PositionalKey, core.RawKey} {
		if v, ok := params[key]; ok {
			return map[string]any{core.AnswerKey: v}
		}
	}
	return params
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isNumber(s string) bool {
	res := gjson.Parse(s)
	return gjson.Valid(s) && res.Type == gjson.Number
}
