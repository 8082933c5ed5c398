package pool

import (
	"math/big"
	"time"

	"fracswap/core/events"
)

// Engine wires the pool business logic with external state, the registry
// authority and event emission. Operations execute against a copy-on-write
// overlay and commit atomically; a failed operation leaves no side effect.
type Engine struct {
	state     State
	authority Authority
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine creates a pool engine with a no-op emitter. Callers override the
// emitter via SetEmitter and must configure state and authority before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetAuthority configures the authorization provider consulted by the
// privileged close and withdraw operations.
func (e *Engine) SetAuthority(authority Authority) { e.authority = authority }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine clock, primarily so tests can drive the
// grace-period transitions deterministically.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// GetPool returns a copy of the stored pool.
func (e *Engine) GetPool(poolID [32]byte) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadPool(e.state, poolID)
}

func (e *Engine) loadPool(st State, id [32]byte) (*Pool, error) {
	p, ok, err := st.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	if p.FractionalSupply == nil {
		p.FractionalSupply = big.NewInt(0)
	}
	if p.ShareSupply == nil {
		p.ShareSupply = big.NewInt(0)
	}
	return p, nil
}

// begin opens a staged view for a mutating operation.
func (e *Engine) begin() (*overlay, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return newOverlay(e.state), nil
}

// finish commits the overlay and emits its queued events.
func (e *Engine) finish(ov *overlay) error {
	queued, err := ov.commit()
	if err != nil {
		return err
	}
	for _, evt := range queued {
		e.emitter.Emit(evt)
	}
	return nil
}

// checkValue enforces the attached-value rules: for a native-priced pool the
// attached value must equal the declared amount; for a token-priced pool it
// must be zero.
func checkValue(p *Pool, declared, value *big.Int) error {
	attached := big.NewInt(0)
	if value != nil {
		attached = value
	}
	if IsNativeToken(p.BaseToken) {
		if declared == nil || attached.Cmp(declared) != 0 {
			return ErrValueMismatch
		}
		return nil
	}
	if attached.Sign() != 0 {
		return ErrValueMismatch
	}
	return nil
}
