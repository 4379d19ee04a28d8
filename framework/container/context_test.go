package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/km-arc/go-spring/framework/aop"
	"github.com/km-arc/go-spring/framework/container"
	"github.com/km-arc/go-spring/framework/event"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type node struct{ name string }

// nodeDef builds a singleton whose constructor depends, by name, on the
// given other definitions.
func nodeDef(name string, deps ...string) *container.Definition {
	def := container.NewDefinition(name,
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{name: name}, nil },
	)
	for _, dep := range deps {
		def.DependsOn(container.DependencyDescriptor{Qualifier: dep, Required: true})
	}
	return def
}

func newContext(t *testing.T, defs ...*container.Definition) *container.ApplicationContext {
	t.Helper()
	ctx := container.New()
	require.NoError(t, ctx.RegisterAll(defs...))
	require.NoError(t, ctx.Refresh())
	return ctx
}

// ── scopes and caching ───────────────────────────────────────────────────────

func TestSingleton_SameInstanceOnEveryRetrieval(t *testing.T) {
	ctx := newContext(t, storeDef("memStore"))

	first, err := ctx.GetBean("memStore")
	require.NoError(t, err)
	second, err := ctx.GetBean("memStore")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestEagerSingleton_InstantiatedAtRefresh(t *testing.T) {
	var created int32
	def := container.NewDefinition("eager",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			atomic.AddInt32(&created, 1)
			return &node{}, nil
		},
	)
	newContext(t, def)
	assert.EqualValues(t, 1, atomic.LoadInt32(&created))
}

func TestLazySingleton_DeferredUntilFirstRetrieval(t *testing.T) {
	var created int32
	def := container.NewDefinition("lazy",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			atomic.AddInt32(&created, 1)
			return &node{}, nil
		},
	).Lazy()
	ctx := newContext(t, def)

	assert.EqualValues(t, 0, atomic.LoadInt32(&created))
	_, err := ctx.GetBean("lazy")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&created))
}

func TestPrototype_FreshInstancePerRetrieval(t *testing.T) {
	def := container.NewDefinition("proto",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{}, nil },
	).WithScope(container.ScopePrototype)
	ctx := newContext(t, def)

	first, err := ctx.GetBean("proto")
	require.NoError(t, err)
	second, err := ctx.GetBean("proto")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestCustomScope_CachedByStrategy(t *testing.T) {
	var created int32
	def := container.NewDefinition("batchBean",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			atomic.AddInt32(&created, 1)
			return &node{}, nil
		},
	).WithScope("batch")

	ctx := container.New(container.WithScopeStrategy("batch", container.NewCachingScope()))
	require.NoError(t, ctx.Register(def))
	require.NoError(t, ctx.Refresh())

	first, err := ctx.GetBean("batchBean")
	require.NoError(t, err)
	second, err := ctx.GetBean("batchBean")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&created))
}

func TestUnknownScope_RejectedAtRegister(t *testing.T) {
	ctx := container.New()
	err := ctx.Register(nodeDef("x").WithScope("request"))
	var invalid *container.InvalidDefinitionError
	assert.ErrorAs(t, err, &invalid)
}

// ── retrieval ────────────────────────────────────────────────────────────────

func TestGetBean_UnknownName(t *testing.T) {
	ctx := newContext(t)

	_, err := ctx.GetBean("ghost")
	var missing *container.NoSuchDefinitionError
	assert.ErrorAs(t, err, &missing)
}

func TestGetBeanByType_AndGenericHelper(t *testing.T) {
	ctx := newContext(t, storeDef("memStore"))

	v, err := ctx.GetBeanByType(container.TypeOf[store]())
	require.NoError(t, err)
	assert.Equal(t, "mem", v.(store).Kind())

	s, err := container.Bean[store](ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem", s.Kind())
}

func TestGetBeanByType_QualifierBreaksTie(t *testing.T) {
	ctx := newContext(t, storeDef("memStore"), sqlStoreDef("sqlStore"))

	_, err := ctx.GetBeanByType(container.TypeOf[store]())
	var ambiguous *container.AmbiguousDependencyError
	require.ErrorAs(t, err, &ambiguous)

	s, err := container.Bean[store](ctx, "sqlStore")
	require.NoError(t, err)
	assert.Equal(t, "sql", s.Kind())
}

// ── dependency resolution ────────────────────────────────────────────────────

func TestConstructorInjection_ByCapability(t *testing.T) {
	svcDef := container.NewDefinition("svc",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			return &node{name: args[0].(store).Kind()}, nil
		},
	).DependsOn(container.DependencyDescriptor{
		Capability: container.TypeOf[store](),
		Required:   true,
	})
	ctx := newContext(t, storeDef("memStore"), svcDef)

	v, err := ctx.GetBean("svc")
	require.NoError(t, err)
	assert.Equal(t, "mem", v.(*node).name)
}

func TestOptionalDependency_ResolvesToNil(t *testing.T) {
	var got any = "sentinel"
	def := container.NewDefinition("svc",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			got = args[0]
			return &node{}, nil
		},
	).DependsOn(container.DependencyDescriptor{
		Capability: container.TypeOf[store](),
		Required:   false,
	})
	newContext(t, def)

	assert.Nil(t, got)
}

func TestRequiredDependency_MissingFailsRefresh(t *testing.T) {
	def := container.NewDefinition("svc",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{}, nil },
	).DependsOn(container.DependencyDescriptor{
		Capability: container.TypeOf[store](),
		Required:   true,
	})
	ctx := container.New()
	require.NoError(t, ctx.Register(def))

	err := ctx.Refresh()
	var missing *container.NoSuchDefinitionError
	assert.ErrorAs(t, err, &missing)
}

func TestCollectionInjection_AllCandidatesInRegistrationOrder(t *testing.T) {
	def := container.NewDefinition("svc",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			stores := args[0].([]any)
			kinds := ""
			for _, s := range stores {
				kinds += s.(store).Kind() + ";"
			}
			return &node{name: kinds}, nil
		},
	).DependsOn(container.DependencyDescriptor{
		Capability: container.TypeOf[store](),
		Collection: true,
	})
	ctx := newContext(t, sqlStoreDef("sqlStore"), storeDef("memStore"), def)

	v, err := ctx.GetBean("svc")
	require.NoError(t, err)
	assert.Equal(t, "sql;mem;", v.(*node).name)
}

// ── cycles ───────────────────────────────────────────────────────────────────

func TestCircularDependency_ReportsExactPath(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.RegisterAll(
		nodeDef("a", "b"),
		nodeDef("b", "c"),
		nodeDef("c", "a"),
	))

	err := ctx.Refresh()
	var cycle *container.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
	assert.EqualError(t, cycle, "circular dependency detected: a -> b -> c -> a")
}

func TestCircularDependency_SelfReference(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.Register(nodeDef("a", "a")))

	err := ctx.Refresh()
	var cycle *container.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "a"}, cycle.Path)
}

func TestDiamondDependency_IsNotACycle(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.RegisterAll(
		nodeDef("root", "left", "right"),
		nodeDef("left", "shared"),
		nodeDef("right", "shared"),
		nodeDef("shared"),
	))
	assert.NoError(t, ctx.Refresh())
}

// ── lifecycle ────────────────────────────────────────────────────────────────

type lifecycleProbe struct {
	trace *[]string
	dep   store
}

func (p *lifecycleProbe) PostConstruct() error {
	*p.trace = append(*p.trace, "post-construct")
	return nil
}

func (p *lifecycleProbe) PreDestroy() error {
	*p.trace = append(*p.trace, "pre-destroy")
	return nil
}

func TestLifecyclePhases_RunInOrder(t *testing.T) {
	var trace []string
	def := container.NewDefinition("probe",
		container.TypeOf[*lifecycleProbe](),
		func(args []any) (any, error) {
			trace = append(trace, "construct")
			return &lifecycleProbe{trace: &trace}, nil
		},
	).WithInjection(
		container.InjectionPoint{
			Name:       "dep",
			Dependency: container.DependencyDescriptor{Capability: container.TypeOf[store](), Required: true, Site: container.SiteSetter},
			Apply: func(target, value any) error {
				trace = append(trace, "inject-dep")
				target.(*lifecycleProbe).dep = value.(store)
				return nil
			},
		},
		container.InjectionPoint{
			Name:       "marker",
			Dependency: container.DependencyDescriptor{Capability: container.TypeOf[store](), Required: true, Site: container.SiteSetter},
			Apply: func(target, value any) error {
				trace = append(trace, "inject-marker")
				return nil
			},
		},
	).WithPostConstruct(func(instance any) error {
		trace = append(trace, "init-hook")
		return nil
	}).WithPreDestroy(func(instance any) error {
		trace = append(trace, "destroy-hook")
		return nil
	})

	ctx := newContext(t, storeDef("memStore"), def)
	require.NoError(t, ctx.Close())

	assert.Equal(t, []string{
		"construct",
		"inject-dep",
		"inject-marker",
		"post-construct",
		"init-hook",
		"pre-destroy",
		"destroy-hook",
	}, trace)
}

func TestDestruction_ReverseOfInitializationOrder(t *testing.T) {
	var destroyed []string
	destroyHook := func(name string) container.Hook {
		return func(any) error {
			destroyed = append(destroyed, name)
			return nil
		}
	}

	// svc depends on repo, so repo initializes first and dies last.
	repo := storeDef("repo").WithPreDestroy(destroyHook("repo"))
	svc := container.NewDefinition("svc",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{}, nil },
	).DependsOn(container.DependencyDescriptor{
		Capability: container.TypeOf[store](),
		Required:   true,
	}).WithPreDestroy(destroyHook("svc"))

	ctx := newContext(t, repo, svc)
	require.NoError(t, ctx.Close())

	assert.Equal(t, []string{"svc", "repo"}, destroyed)
}

func TestPrototype_NeverDestroyedByContainer(t *testing.T) {
	var destroyed int32
	def := container.NewDefinition("proto",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{}, nil },
	).WithScope(container.ScopePrototype).
		WithPreDestroy(func(any) error {
			atomic.AddInt32(&destroyed, 1)
			return nil
		})
	ctx := newContext(t, def)

	_, err := ctx.GetBean("proto")
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
	assert.EqualValues(t, 0, atomic.LoadInt32(&destroyed))
}

func TestCustomScopeInstance_DestroyedAtClose(t *testing.T) {
	var destroyed int32
	def := container.NewDefinition("batchBean",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return &node{}, nil },
	).WithScope("batch").
		WithPreDestroy(func(any) error {
			atomic.AddInt32(&destroyed, 1)
			return nil
		})

	ctx := container.New(container.WithScopeStrategy("batch", container.NewCachingScope()))
	require.NoError(t, ctx.Register(def))
	require.NoError(t, ctx.Refresh())

	_, err := ctx.GetBean("batchBean")
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
	assert.EqualValues(t, 1, atomic.LoadInt32(&destroyed))
}

// ── creation failures ────────────────────────────────────────────────────────

func TestFactoryFailure_WrappedWithPhase(t *testing.T) {
	boom := errors.New("boom")
	def := container.NewDefinition("broken",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return nil, boom },
	)
	ctx := container.New()
	require.NoError(t, ctx.Register(def))

	err := ctx.Refresh()
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
	assert.Equal(t, "broken", creation.Name)
	assert.Equal(t, container.PhaseInstantiated, creation.Phase)
	assert.ErrorIs(t, err, boom)
}

func TestFactoryNilInstance_IsAnError(t *testing.T) {
	def := container.NewDefinition("nilly",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return nil, nil },
	)
	ctx := container.New()
	require.NoError(t, ctx.Register(def))

	err := ctx.Refresh()
	var creation *container.BeanCreationError
	assert.ErrorAs(t, err, &creation)
}

func TestInitHookFailure_WrappedWithPhase(t *testing.T) {
	def := nodeDef("fragile").WithPostConstruct(func(any) error {
		return errors.New("init failed")
	})
	ctx := container.New()
	require.NoError(t, ctx.Register(def))

	err := ctx.Refresh()
	var creation *container.BeanCreationError
	require.ErrorAs(t, err, &creation)
	assert.Equal(t, container.PhaseInitialized, creation.Phase)
}

func TestFailedRefresh_LeavesContainerUnusable(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.Register(container.NewDefinition("broken",
		container.TypeOf[*node](),
		func(args []any) (any, error) { return nil, errors.New("boom") },
	)))
	require.Error(t, ctx.Refresh())

	_, err := ctx.GetBean("broken")
	var state *container.ContainerStateError
	assert.ErrorAs(t, err, &state)
}

// ── container states ─────────────────────────────────────────────────────────

func TestRetrievalBeforeRefresh_Fails(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.Register(nodeDef("a")))

	_, err := ctx.GetBean("a")
	var state *container.ContainerStateError
	assert.ErrorAs(t, err, &state)
}

func TestDiscoveryAfterRefresh_Fails(t *testing.T) {
	ctx := newContext(t)

	var state *container.ContainerStateError
	assert.ErrorAs(t, ctx.Register(nodeDef("late")), &state)
	assert.ErrorAs(t, ctx.RegisterAdvice(aop.NewAfter(aop.Within("*"), func(aop.JoinPoint) {})), &state)
	assert.ErrorAs(t, ctx.Refresh(), &state)
}

func TestClosedContainer_RejectsEverything(t *testing.T) {
	ctx := newContext(t, nodeDef("a"))
	require.NoError(t, ctx.Close())

	var closed *container.ContainerClosedError
	_, err := ctx.GetBean("a")
	assert.ErrorAs(t, err, &closed)
	assert.ErrorAs(t, ctx.Register(nodeDef("b")), &closed)
	assert.True(t, ctx.Closed())
}

func TestClose_FailsLazyCreationInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var destroyed int32

	def := container.NewDefinition("lazy",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			close(started)
			<-release
			return &node{}, nil
		},
	).Lazy().WithPreDestroy(func(any) error {
		atomic.AddInt32(&destroyed, 1)
		return nil
	})
	ctx := newContext(t, def)

	done := make(chan error, 1)
	go func() {
		_, err := ctx.GetBean("lazy")
		done <- err
	}()

	<-started
	require.NoError(t, ctx.Close())
	close(release)

	var closed *container.ContainerClosedError
	require.ErrorAs(t, <-done, &closed)
	// the half-built instance is released exactly once, by the failing pass
	assert.EqualValues(t, 1, atomic.LoadInt32(&destroyed))
}

func TestClose_IdempotentAndAggregatesFailures(t *testing.T) {
	failing := func(name string) *container.Definition {
		return nodeDef(name).WithPreDestroy(func(any) error {
			return errors.New(name + " refused to die")
		})
	}
	ctx := newContext(t, failing("first"), failing("second"))

	err := ctx.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")

	assert.NoError(t, ctx.Close())
}

// ── concurrency ──────────────────────────────────────────────────────────────

func TestConcurrentLazySingleton_CreatedExactlyOnce(t *testing.T) {
	var created int32
	def := container.NewDefinition("lazy",
		container.TypeOf[*node](),
		func(args []any) (any, error) {
			atomic.AddInt32(&created, 1)
			return &node{}, nil
		},
	).Lazy()
	ctx := newContext(t, def)

	const goroutines = 32
	instances := make([]any, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := ctx.GetBean("lazy")
			assert.NoError(t, err)
			instances[i] = v
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&created))
	for i := 1; i < goroutines; i++ {
		assert.Same(t, instances[0], instances[i])
	}
}

func TestConcurrentRetrieval_ReadySingletons(t *testing.T) {
	ctx := newContext(t, storeDef("memStore"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v, err := ctx.GetBean("memStore")
				assert.NoError(t, err)
				assert.NotNil(t, v)
			}
		}()
	}
	wg.Wait()
}

// ── events ───────────────────────────────────────────────────────────────────

func TestContextEvents_RefreshAndClose(t *testing.T) {
	var got []event.Event
	publisher := event.NewPublisher()
	publisher.Subscribe(func(e event.Event) { got = append(got, e) })

	ctx := container.New(container.WithPublisher(publisher))
	require.NoError(t, ctx.RegisterAll(nodeDef("a"), nodeDef("b")))
	require.NoError(t, ctx.Refresh())
	require.NoError(t, ctx.Close())

	require.Len(t, got, 2)
	refreshed, ok := got[0].(event.ContextRefreshed)
	require.True(t, ok)
	assert.Equal(t, 2, refreshed.Definitions)
	assert.NotEmpty(t, refreshed.EventID())

	closed, ok := got[1].(event.ContextClosed)
	require.True(t, ok)
	assert.Equal(t, 2, closed.Destroyed)
}

// ── weaving integration ──────────────────────────────────────────────────────

type kindWrapper struct {
	inv aop.Invoker
}

func (w *kindWrapper) Kind() string {
	s, err := aop.Return[string](w.inv.Call("Kind"))
	if err != nil {
		return ""
	}
	return s
}

func TestWeaving_AdviceInterceptsWovenBean(t *testing.T) {
	var calls int32
	ctx := container.New()

	def := storeDef("memStore").
		WithMarkers("store").
		WithProxyBinder(func(p *aop.Proxy) any { return &kindWrapper{inv: p} })
	require.NoError(t, ctx.Register(def))
	require.NoError(t, ctx.RegisterAdvice(
		aop.NewBefore(aop.TypeMarker("store"), func(jp aop.JoinPoint, args []any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}),
	))
	require.NoError(t, ctx.Refresh())

	s, err := container.Bean[store](ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem", s.Kind())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWeaving_NoBinderRegistersProxyItself(t *testing.T) {
	ctx := container.New()
	require.NoError(t, ctx.Register(storeDef("memStore").WithMarkers("store")))
	require.NoError(t, ctx.RegisterAdvice(
		aop.NewAfter(aop.TypeMarker("store"), func(aop.JoinPoint) {}),
	))
	require.NoError(t, ctx.Refresh())

	v, err := ctx.GetBean("memStore")
	require.NoError(t, err)
	proxy, ok := v.(*aop.Proxy)
	require.True(t, ok)

	results, err := proxy.Call("Kind")
	require.NoError(t, err)
	assert.Equal(t, "mem", results[0])
}

func TestWeaving_UnadvisedBeanStaysRaw(t *testing.T) {
	ctx := newContext(t, storeDef("memStore"))

	v, err := ctx.GetBean("memStore")
	require.NoError(t, err)
	_, isProxy := v.(*aop.Proxy)
	assert.False(t, isProxy)
}
