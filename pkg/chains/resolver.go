package chains

import "fmt"

// Resolver maps application level chain ids to their descriptors
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver on top of a registry
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the descriptor for a chain id
func (r *Resolver) Resolve(id ChainID) (ChainDescriptor, error) {
	d, ok := r.registry.Lookup(id)
	if !ok {
		return ChainDescriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, id)
	}
	return d, nil
}

// CategoryOf returns the execution category of a chain
func (r *Resolver) CategoryOf(id ChainID) (Category, error) {
	d, err := r.Resolve(id)
	if err != nil {
		return 0, err
	}
	return d.Category, nil
}

// Chains lists the supported chains
func (r *Resolver) Chains() []ChainDescriptor {
	return r.registry.All()
}
