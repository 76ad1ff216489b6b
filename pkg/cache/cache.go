// Package cache provides the byte-level caches behind formulascope's
// analysis runner and HTTP server.
//
// A [Cache] stores opaque bytes under string keys with an optional TTL.
// Three implementations are provided:
//
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for the server
//   - [NullCache]: caching disabled
//
// Keys are derived by a [Keyer] from the content they describe, so that an
// edited formula map never hits a stale entry:
//
//	k := cache.NewDefaultKeyer()
//	key := k.TreeKey(mapHash, "Total_Cost", cache.TreeKeyOpts{MaxDepth: 10})
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as a miss (false) with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Default TTLs per entry kind. Engine results are keyed by content hash and
// never go stale, so their TTLs only bound disk and memory use.
const (
	TTLTree       = 7 * 24 * time.Hour
	TTLLayout     = 7 * 24 * time.Hour
	TTLDerivative = 7 * 24 * time.Hour
	TTLRender     = 30 * 24 * time.Hour
	// Solutions come from a store that others edit.
	TTLSolution = 10 * time.Minute
)

// =============================================================================
// Key derivation
// =============================================================================

// TreeKeyOpts are the dependency-tree options that affect the result.
type TreeKeyOpts struct {
	MaxDepth int `json:"max_depth"`
}

// LayoutKeyOpts are the layout options that affect the result.
type LayoutKeyOpts struct {
	// Expanded is the expansion set; order does not matter.
	Expanded []string `json:"expanded"`
	CenterX  float64  `json:"center_x,omitempty"`
}

// RenderKeyOpts are the rendering options that affect the output.
type RenderKeyOpts struct {
	Format string `json:"format"`
}

// Keyer derives cache keys.
type Keyer interface {
	// TreeKey keys a dependency tree of root within the formula map
	// identified by mapHash.
	TreeKey(mapHash, root string, opts TreeKeyOpts) string

	// LayoutKey keys an expression graph.
	LayoutKey(mapHash, root string, opts LayoutKeyOpts) string

	// DerivativeKey keys the partial derivatives of root's formula.
	DerivativeKey(mapHash, root, method string) string

	// RenderKey keys a rendered artifact of the graph with hash graphHash.
	RenderKey(graphHash string, opts RenderKeyOpts) string

	// SolutionKey keys a stored solution document.
	SolutionKey(id string) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TreeKey implements Keyer.
func (DefaultKeyer) TreeKey(mapHash, root string, opts TreeKeyOpts) string {
	return stageKey("tree", mapHash, root, opts)
}

// LayoutKey implements Keyer. The expansion set is sorted and deduplicated
// before hashing.
func (DefaultKeyer) LayoutKey(mapHash, root string, opts LayoutKeyOpts) string {
	expanded := slices.Clone(opts.Expanded)
	slices.Sort(expanded)
	opts.Expanded = slices.Compact(expanded)
	return stageKey("layout", mapHash, root, opts)
}

// DerivativeKey implements Keyer.
func (DefaultKeyer) DerivativeKey(mapHash, root, method string) string {
	return stageKey("derivative", mapHash, root, method)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return stageKey("render", graphHash, opts)
}

// SolutionKey implements Keyer.
func (DefaultKeyer) SolutionKey(id string) string {
	return "solution:" + id
}

var _ Keyer = DefaultKeyer{}

// stageKey is "<stage>:<sha256 of the JSON-encoded parts>".
func stageKey(stage string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return stage + ":" + Hash(data)
}

// HashJSON hashes the JSON encoding of v. Maps encode with sorted keys, so
// equal formula maps hash equally regardless of insertion order.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return Hash(data), nil
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
