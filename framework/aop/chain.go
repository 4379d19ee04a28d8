package aop

// Invocation is the proceeding join point handed to around advice. Proceed
// continues with the remainder of the chain (inner around advice, before /
// after advice and finally the target method). An around advice may call
// Proceed zero, one or several times; skipping it entirely short-circuits
// the call, in which case the advice's own return value stands in for the
// method outcome.
type Invocation struct {
	JoinPoint

	// Args are the call arguments. Proceed passes them on as-is; use
	// ProceedWith to substitute different ones.
	Args []any

	proceed func(args []any) ([]any, error)
}

// Proceed continues the chain with the original arguments.
func (inv *Invocation) Proceed() ([]any, error) {
	return inv.proceed(inv.Args)
}

// ProceedWith continues the chain with replacement arguments.
func (inv *Invocation) ProceedWith(args []any) ([]any, error) {
	return inv.proceed(args)
}

// methodChain is the weave-time product for one join point: the matched
// advice partitioned by kind, each partition already in chain order.
type methodChain struct {
	jp JoinPoint

	arounds        []*Advice
	befores        []*Advice
	afters         []*Advice
	afterReturning []*Advice
	afterThrowing  []*Advice
}

func newMethodChain(jp JoinPoint, matched []*Advice) *methodChain {
	sortChain(matched)
	mc := &methodChain{jp: jp}
	for _, a := range matched {
		switch a.kind {
		case KindAround:
			mc.arounds = append(mc.arounds, a)
		case KindBefore:
			mc.befores = append(mc.befores, a)
		case KindAfter:
			mc.afters = append(mc.afters, a)
		case KindAfterReturning:
			mc.afterReturning = append(mc.afterReturning, a)
		case KindAfterThrowing:
			mc.afterThrowing = append(mc.afterThrowing, a)
		}
	}
	return mc
}

func (mc *methodChain) empty() bool {
	return len(mc.arounds)+len(mc.befores)+len(mc.afters)+
		len(mc.afterReturning)+len(mc.afterThrowing) == 0
}

// invoke runs the full chain around target. Around advice nests outside
// everything else: the first around in chain order is outermost.
func (mc *methodChain) invoke(target func(args []any) ([]any, error), args []any) ([]any, error) {
	next := func(args []any) ([]any, error) {
		return mc.invokeCore(target, args)
	}
	for i := len(mc.arounds) - 1; i >= 0; i-- {
		around := mc.arounds[i]
		inner := next
		next = func(args []any) ([]any, error) {
			return around.around(&Invocation{JoinPoint: mc.jp, Args: args, proceed: inner})
		}
	}
	return next(args)
}

// invokeCore runs the non-around portion: before advice in chain order, the
// target, then after-throwing (reverse order) or after-returning (chain
// order), then after advice in chain order regardless of outcome.
func (mc *methodChain) invokeCore(target func(args []any) ([]any, error), args []any) ([]any, error) {
	var (
		results []any
		err     error
	)

	for _, b := range mc.befores {
		if bErr := b.before(mc.jp, args); bErr != nil {
			err = &AdviceError{Component: mc.jp.Component, Method: mc.jp.Method, Kind: KindBefore, Err: bErr}
			break
		}
	}

	if err == nil {
		results, err = target(args)
	}

	if err != nil {
		for i := len(mc.afterThrowing) - 1; i >= 0; i-- {
			if replaced := mc.afterThrowing[i].afterThrowing(mc.jp, err); replaced != nil {
				err = replaced
			}
		}
	} else {
		for _, ar := range mc.afterReturning {
			ar.afterReturning(mc.jp, results)
		}
	}

	for _, af := range mc.afters {
		af.after(mc.jp)
	}

	return results, err
}
