package container

import (
	"fmt"
	"strings"
)

// DuplicateDefinitionError reports a registration conflict: the name is
// already taken and overriding is not permitted.
type DuplicateDefinitionError struct {
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("definition already registered for name %q", e.Name)
}

// InvalidDefinitionError reports a definition rejected at registration.
type InvalidDefinitionError struct {
	Name   string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition %q: %s", e.Name, e.Reason)
}

// NoSuchDefinitionError reports a lookup miss, by name or by capability.
type NoSuchDefinitionError struct {
	Name       string
	Capability string
}

func (e *NoSuchDefinitionError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("no definition provides capability %s", e.Capability)
	}
	return fmt.Sprintf("no definition registered for name %q", e.Name)
}

// AmbiguousDependencyError reports 2+ unqualified candidates for one
// capability with no single primary to break the tie. It names every
// candidate for diagnostics.
type AmbiguousDependencyError struct {
	Capability string
	Candidates []string
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf("ambiguous dependency: %d candidates provide %s: %s",
		len(e.Candidates), e.Capability, strings.Join(e.Candidates, ", "))
}

// CircularDependencyError carries the full ordered cycle path, starting
// and ending at the component where the back-edge was found.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Path, " -> ")
}

// BeanCreationError wraps a constructor, injection or hook failure with the
// component name and the lifecycle phase that was in progress.
type BeanCreationError struct {
	Name  string
	Phase Phase
	Err   error
}

func (e *BeanCreationError) Error() string {
	return fmt.Sprintf("creating bean %q failed during %s: %v", e.Name, e.Phase, e.Err)
}

func (e *BeanCreationError) Unwrap() error { return e.Err }

// ContainerClosedError reports a retrieval attempted on a closed container.
type ContainerClosedError struct{}

func (e *ContainerClosedError) Error() string {
	return "container is closed"
}

// ContainerStateError reports an operation attempted in the wrong lifecycle
// state, e.g. GetBean before Refresh or Register after it.
type ContainerStateError struct {
	Op    string
	State string
}

func (e *ContainerStateError) Error() string {
	return fmt.Sprintf("%s is not allowed while the container is %s", e.Op, e.State)
}
