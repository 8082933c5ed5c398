package registry

import (
	"errors"
	"time"

	"fracswap/native/pool"
)

var (
	errNilState = errors.New("registry: state not configured")

	// ErrPoolExists indicates a live pool already occupies the identity
	// triple.
	ErrPoolExists = errors.New("registry: pool already exists")
	// ErrPoolNotFound indicates no live pool occupies the identity triple.
	ErrPoolNotFound = errors.New("registry: pool not found")
)

// State is the backend the registry operates against.
type State interface {
	PoolGet(id [32]byte) (*pool.Pool, bool, error)
	PoolPut(p *pool.Pool) error

	RegistryGet(key [32]byte) ([32]byte, bool, error)
	RegistryPut(key [32]byte, poolID [32]byte) error
	RegistryList() ([][32]byte, error)

	NextPoolSeq() (uint64, error)
}

// Registry creates pools and maps identity triples to live pool instances.
// It also carries the privileged operator identity consulted by the pool
// engine's close and withdraw operations, so it satisfies pool.Authority.
type Registry struct {
	state State
	owner [20]byte
	nowFn func() int64
}

// New constructs a registry bound to the supplied state and operator.
func New(state State, owner [20]byte) *Registry {
	return &Registry{state: state, owner: owner}
}

// SetNowFunc overrides the clock used to stamp pool creation times.
func (r *Registry) SetNowFunc(now func() int64) { r.nowFn = now }

// Owner returns the privileged operator address.
func (r *Registry) Owner() ([20]byte, error) {
	if r == nil {
		return [20]byte{}, errNilState
	}
	return r.owner, nil
}

// Create instantiates a pool for the identity triple. At most one live pool
// may exist per triple; closed pools free the triple for re-creation while
// their instances (and IDs) remain distinct.
func (r *Registry) Create(collection [20]byte, baseToken string, root [32]byte) (*pool.Pool, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	normalized, err := pool.NormalizeBaseToken(baseToken)
	if err != nil {
		return nil, err
	}
	key := pool.IdentityKey(collection, normalized, root)
	if _, exists, err := r.state.RegistryGet(key); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrPoolExists
	}
	seq, err := r.state.NextPoolSeq()
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	if r.nowFn != nil {
		now = r.nowFn()
	}
	p := &pool.Pool{
		ID:            pool.NewPoolID(collection, normalized, root, seq),
		Collection:    collection,
		BaseToken:     normalized,
		AllowListRoot: root,
		CreatedAt:     now,
	}
	if err := r.state.PoolPut(p); err != nil {
		return nil, err
	}
	if err := r.state.RegistryPut(key, p.ID); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Lookup resolves the live pool for an identity triple.
func (r *Registry) Lookup(collection [20]byte, baseToken string, root [32]byte) (*pool.Pool, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	normalized, err := pool.NormalizeBaseToken(baseToken)
	if err != nil {
		return nil, err
	}
	key := pool.IdentityKey(collection, normalized, root)
	id, exists, err := r.state.RegistryGet(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPoolNotFound
	}
	p, ok, err := r.state.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// List returns the IDs of all live (not closed) pools.
func (r *Registry) List() ([][32]byte, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	return r.state.RegistryList()
}
