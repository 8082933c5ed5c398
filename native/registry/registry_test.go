package registry

import (
	"testing"

	"fracswap/native/pool"
)

type mockState struct {
	pools   map[[32]byte]*pool.Pool
	mapping map[[32]byte][32]byte
	seq     uint64
}

func newMockState() *mockState {
	return &mockState{
		pools:   make(map[[32]byte]*pool.Pool),
		mapping: make(map[[32]byte][32]byte),
	}
}

func (m *mockState) PoolGet(id [32]byte) (*pool.Pool, bool, error) {
	p, ok := m.pools[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) PoolPut(p *pool.Pool) error {
	m.pools[p.ID] = p.Clone()
	return nil
}

func (m *mockState) RegistryGet(key [32]byte) ([32]byte, bool, error) {
	id, ok := m.mapping[key]
	return id, ok, nil
}

func (m *mockState) RegistryPut(key [32]byte, poolID [32]byte) error {
	m.mapping[key] = poolID
	return nil
}

func (m *mockState) RegistryList() ([][32]byte, error) {
	ids := make([][32]byte, 0, len(m.mapping))
	for _, id := range m.mapping {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockState) RegistryDelete(key [32]byte) error {
	delete(m.mapping, key)
	return nil
}

func (m *mockState) NextPoolSeq() (uint64, error) {
	m.seq++
	return m.seq, nil
}

func testCollection(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestCreateAndLookup(t *testing.T) {
	st := newMockState()
	owner := testCollection(0xAA)
	reg := New(st, owner)
	reg.SetNowFunc(func() int64 { return 1_000 })

	collection := testCollection(0x01)
	created, err := reg.Create(collection, "usdc", [32]byte{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.BaseToken != "USDC" {
		t.Fatalf("base token not normalized: %q", created.BaseToken)
	}
	if created.CreatedAt != 1_000 {
		t.Fatalf("created at %d, want 1000", created.CreatedAt)
	}

	found, err := reg.Lookup(collection, "USDC", [32]byte{})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("lookup resolved a different pool")
	}
}

func TestCreateEmptySymbolMeansNative(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))

	created, err := reg.Create(testCollection(0x01), "", [32]byte{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.BaseToken != pool.NativeToken {
		t.Fatalf("empty symbol resolved to %q, want %q", created.BaseToken, pool.NativeToken)
	}
}

func TestCreateDuplicateTriple(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))
	collection := testCollection(0x01)

	if _, err := reg.Create(collection, "USDC", [32]byte{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reg.Create(collection, "usdc", [32]byte{}); err != ErrPoolExists {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}

	// A different root is a different triple.
	if _, err := reg.Create(collection, "USDC", [32]byte{0x01}); err != nil {
		t.Fatalf("create with distinct root: %v", err)
	}
}

func TestRecreateAfterCloseGetsFreshID(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))
	collection := testCollection(0x01)

	first, err := reg.Create(collection, "USDC", [32]byte{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Closing releases the identity mapping.
	if err := st.RegistryDelete(pool.IdentityKey(collection, "USDC", [32]byte{})); err != nil {
		t.Fatalf("registry delete: %v", err)
	}

	second, err := reg.Create(collection, "USDC", [32]byte{})
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("re-created pool reused the old ID")
	}
}

func TestLookupMissing(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))

	if _, err := reg.Lookup(testCollection(0x01), "USDC", [32]byte{}); err != ErrPoolNotFound {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestListReturnsLivePools(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))

	if _, err := reg.Create(testCollection(0x01), "USDC", [32]byte{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reg.Create(testCollection(0x02), "", [32]byte{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	ids, err := reg.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 live pools, got %d", len(ids))
	}
}

func TestCreateRejectsBadSymbol(t *testing.T) {
	st := newMockState()
	reg := New(st, testCollection(0xAA))

	if _, err := reg.Create(testCollection(0x01), "us-dc", [32]byte{}); err == nil {
		t.Fatalf("expected symbol validation error")
	}
}
