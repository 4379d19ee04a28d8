// Package container provides the component-lifecycle runtime: a registry of
// declaratively described components, a dependency resolver with cycle
// detection, a lifecycle manager driving instances from instantiation to
// destruction, and the facade that ties them to the aspect weaver.
//
// # Lifecycle
//
//  1. Discovery — collaborators build Definitions and feed them to
//     Register; aspects go to RegisterAdvice.
//  2. Refresh — weaving plans are frozen, every non-lazy singleton is
//     resolved and instantiated eagerly, in registration order. A cycle,
//     an ambiguous dependency or a failing hook aborts the refresh.
//  3. Serve — GetBean / GetBeanByType retrieve ready instances; lazy
//     singletons build at most once under concurrent first access,
//     prototypes build per call with ownership transferred to the caller.
//  4. Close — pre-destroy hooks run in reverse initialization order; hook
//     failures are aggregated, never fatal to the pass.
//
// # Describing components
//
//	repo := container.NewDefinition("userRepo",
//	    container.TypeOf[*MemoryRepo](),
//	    func(args []any) (any, error) { return NewMemoryRepo(), nil },
//	).Provides(container.TypeOf[UserRepository]())
//
//	svc := container.NewDefinition("userService",
//	    container.TypeOf[*UserService](),
//	    func(args []any) (any, error) {
//	        return NewUserService(args[0].(UserRepository)), nil
//	    },
//	).DependsOn(container.DependencyDescriptor{
//	    Capability: container.TypeOf[UserRepository](),
//	    Required:   true,
//	})
//
// Every instance moves through Instantiated → Populated → Initialized →
// Ready, and cached instances through → Destroyed at Close. Constructor
// dependencies resolve before the factory runs; injection points apply in
// declaration order before any post-construct hook.
//
// # Weaving
//
// Definitions matched by registered advice are replaced, at creation time,
// by an interception wrapper from package aop. Dependents receive the
// wrapper, never the raw instance, so aspect behavior is transparent to
// every caller.
package container
