package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments, or the
// CLI and the server, can share one Redis without colliding.
//
// Example usage:
//
//	// Keys for the staging server
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TreeKey generates a prefixed dependency-tree key.
func (k *ScopedKeyer) TreeKey(mapHash, root string, opts TreeKeyOpts) string {
	return k.prefix + k.inner.TreeKey(mapHash, root, opts)
}

// LayoutKey generates a prefixed expression-graph key.
func (k *ScopedKeyer) LayoutKey(mapHash, root string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(mapHash, root, opts)
}

// DerivativeKey generates a prefixed derivative key.
func (k *ScopedKeyer) DerivativeKey(mapHash, root, method string) string {
	return k.prefix + k.inner.DerivativeKey(mapHash, root, method)
}

// RenderKey generates a prefixed artifact key.
func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}

// SolutionKey generates a prefixed solution key.
func (k *ScopedKeyer) SolutionKey(id string) string {
	return k.prefix + k.inner.SolutionKey(id)
}
