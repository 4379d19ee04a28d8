// Package aop provides the interception layer of the container: pointcuts,
// advice and the proxy factory that weaves ordered advice chains around a
// component's method calls.
//
// # Model
//
// A join point is one (component, method) pair. Pointcuts are structural
// predicates over join points — they are evaluated once at weave time and
// never again per call:
//
//	pc := aop.Execution("UserService.Get*")
//	pc = aop.And(pc, aop.Not(aop.MethodMarker("internal")))
//
// Advice attaches behavior to matched join points:
//
//	logged := aop.NewBefore(pc, func(jp aop.JoinPoint, args []any) error {
//	    log.Printf("calling %s", jp.Signature())
//	    return nil
//	}).WithOrder(1)
//
// # Weaving
//
// The Weaver collects advice and, per component surface, computes a Plan:
// the cached advice chain for every matched method. A component with an
// empty plan is left unproxied. For matched components the container
// registers an interception wrapper (Proxy) in place of the raw instance,
// so every caller observes advised behavior transparently.
//
// # Chain order
//
// Advice sorts by explicit order ascending; unordered advice sorts after
// ordered advice, stable by registration order. For one call:
//
//   - around advice wraps everything below it (first in chain order is
//     outermost) and decides whether and how often to Proceed
//   - before advice runs in chain order; an error skips the remaining
//     before advice and the target
//   - after-returning advice runs in chain order on normal return only
//   - after-throwing advice runs in reverse chain order on error and may
//     replace the error (returning nil keeps the original)
//   - after advice runs last, in chain order, regardless of outcome
package aop
