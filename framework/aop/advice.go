package aop

import (
	"fmt"
	"sort"
)

// ── Advice kinds ─────────────────────────────────────────────────────────────

// Kind identifies when an advice runs relative to the target method.
type Kind int

const (
	KindBefore Kind = iota
	KindAfter
	KindAfterReturning
	KindAfterThrowing
	KindAround
)

func (k Kind) String() string {
	switch k {
	case KindBefore:
		return "before"
	case KindAfter:
		return "after"
	case KindAfterReturning:
		return "after-returning"
	case KindAfterThrowing:
		return "after-throwing"
	case KindAround:
		return "around"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ── Advice callables ─────────────────────────────────────────────────────────

// BeforeFunc runs before the target. A non-nil error skips the remaining
// before advice and the target itself.
type BeforeFunc func(jp JoinPoint, args []any) error

// AfterFunc runs after the call regardless of outcome.
type AfterFunc func(jp JoinPoint)

// AfterReturningFunc observes a normal return value. It cannot replace it.
type AfterReturningFunc func(jp JoinPoint, results []any)

// AfterThrowingFunc observes a failure. Returning a non-nil error replaces
// the propagated error; returning nil keeps the original.
type AfterThrowingFunc func(jp JoinPoint, err error) error

// AroundFunc fully wraps the remainder of the chain. It decides whether,
// when and how many times to call inv.Proceed, and its return value is the
// outcome of the call.
type AroundFunc func(inv *Invocation) ([]any, error)

// ── Advice ───────────────────────────────────────────────────────────────────

// Advice is one (pointcut, kind, callable, order) tuple. Build it with the
// New* constructors; an explicit order is opt-in via WithOrder.
type Advice struct {
	pointcut Pointcut
	kind     Kind
	order    int
	ordered  bool
	seq      int // discovery order, assigned by the weaver

	before         BeforeFunc
	after          AfterFunc
	afterReturning AfterReturningFunc
	afterThrowing  AfterThrowingFunc
	around         AroundFunc
}

// NewBefore builds a before advice.
func NewBefore(pc Pointcut, fn BeforeFunc) *Advice {
	return &Advice{pointcut: pc, kind: KindBefore, before: fn}
}

// NewAfter builds an after (finally) advice.
func NewAfter(pc Pointcut, fn AfterFunc) *Advice {
	return &Advice{pointcut: pc, kind: KindAfter, after: fn}
}

// NewAfterReturning builds an after-returning advice.
func NewAfterReturning(pc Pointcut, fn AfterReturningFunc) *Advice {
	return &Advice{pointcut: pc, kind: KindAfterReturning, afterReturning: fn}
}

// NewAfterThrowing builds an after-throwing advice.
func NewAfterThrowing(pc Pointcut, fn AfterThrowingFunc) *Advice {
	return &Advice{pointcut: pc, kind: KindAfterThrowing, afterThrowing: fn}
}

// NewAround builds an around advice.
func NewAround(pc Pointcut, fn AroundFunc) *Advice {
	return &Advice{pointcut: pc, kind: KindAround, around: fn}
}

// WithOrder assigns an explicit chain position. Lower runs earlier.
// Advice without an explicit order sorts after all ordered advice.
func (a *Advice) WithOrder(order int) *Advice {
	a.order = order
	a.ordered = true
	return a
}

// Kind returns the advice kind.
func (a *Advice) Kind() Kind { return a.kind }

// Pointcut returns the advice pointcut.
func (a *Advice) Pointcut() Pointcut { return a.pointcut }

// Validate checks that the callable matches the declared kind.
func (a *Advice) Validate() error {
	var ok bool
	switch a.kind {
	case KindBefore:
		ok = a.before != nil
	case KindAfter:
		ok = a.after != nil
	case KindAfterReturning:
		ok = a.afterReturning != nil
	case KindAfterThrowing:
		ok = a.afterThrowing != nil
	case KindAround:
		ok = a.around != nil
	}
	if a.pointcut == nil {
		return fmt.Errorf("aop: %s advice has no pointcut", a.kind)
	}
	if !ok {
		return fmt.Errorf("aop: %s advice has no callable", a.kind)
	}
	return nil
}

// sortChain orders advice for chain execution: explicit order ascending,
// unordered after ordered, ties stable by discovery order.
func sortChain(advices []*Advice) {
	sort.SliceStable(advices, func(i, j int) bool {
		a, b := advices[i], advices[j]
		switch {
		case a.ordered && !b.ordered:
			return true
		case !a.ordered && b.ordered:
			return false
		case a.ordered && b.ordered:
			return a.order < b.order
		default:
			return false
		}
	})
}

// ── Interception failures ────────────────────────────────────────────────────

// AdviceError reports an error raised by an advice (rather than the target)
// while intercepting a join point.
type AdviceError struct {
	Component string
	Method    string
	Kind      Kind
	Err       error
}

func (e *AdviceError) Error() string {
	return fmt.Sprintf("aop: %s advice failed on %s.%s: %v", e.Kind, e.Component, e.Method, e.Err)
}

func (e *AdviceError) Unwrap() error { return e.Err }
