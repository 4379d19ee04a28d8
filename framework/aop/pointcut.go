package aop

import (
	"fmt"
	"regexp"
	"strings"
)

// ── Join point ───────────────────────────────────────────────────────────────

// JoinPoint is the static description of one interceptable method: the
// component it belongs to, its declaring type and the declarative markers
// carried by the component definition. Pointcuts only ever see this
// structural data — never runtime arguments.
type JoinPoint struct {
	Component     string
	Type          string
	Method        string
	TypeMarkers   []string
	MethodMarkers []string
}

// Signature returns "Type.Method", the form Execution patterns match.
func (jp JoinPoint) Signature() string {
	return jp.Type + "." + jp.Method
}

// HasTypeMarker reports whether the declaring type carries the marker.
func (jp JoinPoint) HasTypeMarker(name string) bool {
	return contains(jp.TypeMarkers, name)
}

// HasMethodMarker reports whether the method carries the marker.
func (jp JoinPoint) HasMethodMarker(name string) bool {
	return contains(jp.MethodMarkers, name)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// ── Pointcut ─────────────────────────────────────────────────────────────────

// Pointcut is a boolean predicate over join points.
type Pointcut interface {
	Matches(jp JoinPoint) bool
	String() string
}

// Execution matches against the "Type.Method" signature. Pattern syntax:
// "*" matches any run of characters except dots, ".." matches across dots.
//
//	aop.Execution("UserService.Get*")
//	aop.Execution("*Repository.Save")
func Execution(pattern string) Pointcut {
	return &executionPointcut{pattern: pattern, re: wildcardRegexp(pattern)}
}

type executionPointcut struct {
	pattern string
	re      *regexp.Regexp
}

func (p *executionPointcut) Matches(jp JoinPoint) bool { return p.re.MatchString(jp.Signature()) }
func (p *executionPointcut) String() string            { return "execution(" + p.pattern + ")" }

// Within matches every method of types whose name matches the pattern.
//
//	aop.Within("*Service")
func Within(pattern string) Pointcut {
	return &withinPointcut{pattern: pattern, re: wildcardRegexp(pattern)}
}

type withinPointcut struct {
	pattern string
	re      *regexp.Regexp
}

func (p *withinPointcut) Matches(jp JoinPoint) bool { return p.re.MatchString(jp.Type) }
func (p *withinPointcut) String() string            { return "within(" + p.pattern + ")" }

// TypeMarker matches every method of components whose definition carries
// the given type-level marker.
func TypeMarker(name string) Pointcut { return typeMarkerPointcut(name) }

type typeMarkerPointcut string

func (p typeMarkerPointcut) Matches(jp JoinPoint) bool { return jp.HasTypeMarker(string(p)) }
func (p typeMarkerPointcut) String() string            { return "@type(" + string(p) + ")" }

// MethodMarker matches methods that carry the given method-level marker.
func MethodMarker(name string) Pointcut { return methodMarkerPointcut(name) }

type methodMarkerPointcut string

func (p methodMarkerPointcut) Matches(jp JoinPoint) bool { return jp.HasMethodMarker(string(p)) }
func (p methodMarkerPointcut) String() string            { return "@method(" + string(p) + ")" }

// ── Combinators ──────────────────────────────────────────────────────────────

// And matches when every given pointcut matches.
func And(pcs ...Pointcut) Pointcut { return &compositePointcut{op: "&&", pcs: pcs} }

// Or matches when any given pointcut matches.
func Or(pcs ...Pointcut) Pointcut { return &compositePointcut{op: "||", pcs: pcs} }

type compositePointcut struct {
	op  string
	pcs []Pointcut
}

func (p *compositePointcut) Matches(jp JoinPoint) bool {
	for _, pc := range p.pcs {
		if pc.Matches(jp) == (p.op == "||") {
			return p.op == "||"
		}
	}
	return p.op == "&&"
}

func (p *compositePointcut) String() string {
	parts := make([]string, len(p.pcs))
	for i, pc := range p.pcs {
		parts[i] = pc.String()
	}
	return "(" + strings.Join(parts, " "+p.op+" ") + ")"
}

// Not inverts a pointcut.
func Not(pc Pointcut) Pointcut { return &notPointcut{pc: pc} }

type notPointcut struct{ pc Pointcut }

func (p *notPointcut) Matches(jp JoinPoint) bool { return !p.pc.Matches(jp) }
func (p *notPointcut) String() string            { return "!" + p.pc.String() }

// wildcardRegexp compiles a pattern where "*" stops at dots and ".."
// crosses them. Compiled once per pointcut — matching is regex-only.
func wildcardRegexp(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\.\.`, "\x00")
	quoted = strings.ReplaceAll(quoted, `\*`, `[^.]*`)
	quoted = strings.ReplaceAll(quoted, "\x00", `.*`)
	return regexp.MustCompile("^" + quoted + "$")
}

// ── Expression parser ────────────────────────────────────────────────────────

// Parse compiles a pointcut expression. Supported primitives:
//
//	execution(UserService.Get*)
//	within(*Service)
//	@type(transactional)
//	@method(logged)
//
// combined with "&&", "||", "!" and parentheses:
//
//	execution(*Service.*) && !@method(internal)
func Parse(expr string) (Pointcut, error) {
	p := &exprParser{input: expr}
	pc, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("pointcut: unexpected %q at offset %d", p.input[p.pos:], p.pos)
	}
	return pc, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseOr() (Pointcut, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Pointcut{left}
	for p.consume("||") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return Or(terms...), nil
}

func (p *exprParser) parseAnd() (Pointcut, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Pointcut{left}
	for p.consume("&&") {
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return And(terms...), nil
}

func (p *exprParser) parseUnary() (Pointcut, error) {
	if p.consume("!") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, fmt.Errorf("pointcut: missing ')' at offset %d", p.pos)
		}
		return inner, nil
	}
	return p.parsePrimitive()
}

func (p *exprParser) parsePrimitive() (Pointcut, error) {
	p.skipSpace()
	for _, prim := range []struct {
		prefix string
		build  func(arg string) Pointcut
	}{
		{"execution(", Execution},
		{"within(", Within},
		{"@type(", TypeMarker},
		{"@method(", MethodMarker},
	} {
		if strings.HasPrefix(p.input[p.pos:], prim.prefix) {
			start := p.pos + len(prim.prefix)
			end := strings.IndexByte(p.input[start:], ')')
			if end < 0 {
				return nil, fmt.Errorf("pointcut: missing ')' in %q", p.input[p.pos:])
			}
			arg := strings.TrimSpace(p.input[start : start+end])
			if arg == "" {
				return nil, fmt.Errorf("pointcut: empty argument in %q", prim.prefix+")")
			}
			p.pos = start + end + 1
			return prim.build(arg), nil
		}
	}
	return nil, fmt.Errorf("pointcut: expected primitive at offset %d in %q", p.pos, p.input)
}

func (p *exprParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
