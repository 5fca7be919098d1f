package swarm

import "fmt"

type deformOptions struct {
	updateOwners bool
}

// DeformOption configures a DeformSwarm scope.
type DeformOption func(*deformOptions)

// DeferOwnerUpdate suppresses the automatic owner update on normal scope
// exit. Used when mesh and particles move together and the caller will run
// UpdateParticleOwners once both have settled.
func DeferOwnerUpdate() DeformOption {
	return func(o *deformOptions) { o.updateOwners = false }
}

// DeformSwarm runs fn inside a deform scope: the only region of code in
// which particle coordinates may be modified. On normal exit the owner
// update runs automatically unless suppressed with DeferOwnerUpdate. If fn
// fails, coordinate storage is restored to read-only, the error is
// annotated and returned, and no owner update is attempted, since partially
// modified coordinates cannot be trusted for re-localization.
//
// Only one deform scope may be active on a swarm at a time.
func (s *Swarm) DeformSwarm(fn func() error, opts ...DeformOption) error {
	if s.deformActive {
		return usageErrorf("a deform scope is already active on this swarm")
	}
	o := deformOptions{updateOwners: true}
	for _, opt := range opts {
		opt(&o)
	}

	err := func() error {
		s.deformActive = true
		defer func() { s.deformActive = false }()
		return fn()
	}()
	if err != nil {
		return fmt.Errorf("error during particle deformation; particle locations may be inconsistent: %w", err)
	}

	if o.updateOwners {
		return s.UpdateParticleOwners()
	}
	return nil
}
