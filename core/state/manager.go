package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"fracswap/core/types"
	"fracswap/native/pool"
	"fracswap/storage"
)

var (
	accountPrefix    = []byte("account:")
	poolPrefix       = []byte("pool:")
	tokenPrefix      = []byte("token-balance:")
	fractionalPrefix = []byte("fractional-balance:")
	sharePrefix      = []byte("share-balance:")
	itemPrefix       = []byte("item-owner:")
	registryPrefix   = []byte("registry:")

	registryIndexKey = ethcrypto.Keccak256([]byte("registry-index"))
	poolSeqKey       = ethcrypto.Keccak256([]byte("pool-seq"))
)

// Manager persists engine and registry state in a key-value store. Keys are
// keccak-derived from a prefix and the record identity; values are RLP.
// It implements both pool.State and registry.State.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// poolRecord mirrors pool.Pool with RLP-friendly field types.
type poolRecord struct {
	Collection       [20]byte
	BaseToken        string
	AllowListRoot    [32]byte
	FractionalSupply *big.Int
	ShareSupply      *big.Int
	CreatedAt        uint64
	CloseAt          uint64
}

type registryEntry struct {
	Key    [32]byte
	PoolID [32]byte
}

func hashKey(prefix []byte, parts ...[]byte) []byte {
	payload := make([]byte, 0, 64)
	payload = append(payload, prefix...)
	for _, part := range parts {
		payload = append(payload, part...)
	}
	return ethcrypto.Keccak256(payload)
}

// --- pools ---

func (m *Manager) PoolGet(id [32]byte) (*pool.Pool, bool, error) {
	raw, err := m.db.Get(hashKey(poolPrefix, id[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var record poolRecord
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, false, fmt.Errorf("state: decode pool: %w", err)
	}
	p := &pool.Pool{
		ID:               id,
		Collection:       record.Collection,
		BaseToken:        record.BaseToken,
		AllowListRoot:    record.AllowListRoot,
		FractionalSupply: record.FractionalSupply,
		ShareSupply:      record.ShareSupply,
		CreatedAt:        int64(record.CreatedAt),
		CloseAt:          int64(record.CloseAt),
	}
	return p, true, nil
}

func (m *Manager) PoolPut(p *pool.Pool) error {
	if p == nil {
		return fmt.Errorf("state: nil pool")
	}
	record := poolRecord{
		Collection:       p.Collection,
		BaseToken:        p.BaseToken,
		AllowListRoot:    p.AllowListRoot,
		FractionalSupply: nonNil(p.FractionalSupply),
		ShareSupply:      nonNil(p.ShareSupply),
		CreatedAt:        uint64(p.CreatedAt),
		CloseAt:          uint64(p.CloseAt),
	}
	raw, err := rlp.EncodeToBytes(&record)
	if err != nil {
		return fmt.Errorf("state: encode pool: %w", err)
	}
	return m.db.Put(hashKey(poolPrefix, p.ID[:]), raw)
}

// --- accounts ---

func (m *Manager) AccountGet(addr [20]byte) (*types.Account, error) {
	raw, err := m.db.Get(hashKey(accountPrefix, addr[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	if err != nil {
		return nil, err
	}
	account := &types.Account{}
	if err := rlp.DecodeBytes(raw, account); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

func (m *Manager) AccountPut(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	record := &types.Account{Nonce: account.Nonce, Balance: nonNil(account.Balance)}
	raw, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(hashKey(accountPrefix, addr[:]), raw)
}

// --- balances ---

func (m *Manager) TokenBalance(symbol string, addr [20]byte) (*big.Int, error) {
	return m.getBalance(hashKey(tokenPrefix, []byte(symbol), addr[:]))
}

func (m *Manager) TokenSetBalance(symbol string, addr [20]byte, amount *big.Int) error {
	return m.setBalance(hashKey(tokenPrefix, []byte(symbol), addr[:]), amount)
}

func (m *Manager) FractionalBalance(poolID [32]byte, addr [20]byte) (*big.Int, error) {
	return m.getBalance(hashKey(fractionalPrefix, poolID[:], addr[:]))
}

func (m *Manager) SetFractionalBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error {
	return m.setBalance(hashKey(fractionalPrefix, poolID[:], addr[:]), amount)
}

func (m *Manager) ShareBalance(poolID [32]byte, addr [20]byte) (*big.Int, error) {
	return m.getBalance(hashKey(sharePrefix, poolID[:], addr[:]))
}

func (m *Manager) SetShareBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error {
	return m.setBalance(hashKey(sharePrefix, poolID[:], addr[:]), amount)
}

func (m *Manager) getBalance(key []byte) (*big.Int, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(raw, balance); err != nil {
		return nil, fmt.Errorf("state: decode balance: %w", err)
	}
	return balance, nil
}

func (m *Manager) setBalance(key []byte, amount *big.Int) error {
	raw, err := rlp.EncodeToBytes(nonNil(amount))
	if err != nil {
		return fmt.Errorf("state: encode balance: %w", err)
	}
	return m.db.Put(key, raw)
}

// --- items ---

func (m *Manager) ItemOwner(collection [20]byte, itemID *big.Int) ([20]byte, bool, error) {
	var owner [20]byte
	raw, err := m.db.Get(hashKey(itemPrefix, collection[:], itemWord(itemID)))
	if errors.Is(err, storage.ErrNotFound) {
		return owner, false, nil
	}
	if err != nil {
		return owner, false, err
	}
	if len(raw) != 20 {
		return owner, false, fmt.Errorf("state: malformed item owner record")
	}
	copy(owner[:], raw)
	return owner, true, nil
}

func (m *Manager) ItemSetOwner(collection [20]byte, itemID *big.Int, owner [20]byte) error {
	return m.db.Put(hashKey(itemPrefix, collection[:], itemWord(itemID)), owner[:])
}

func itemWord(itemID *big.Int) []byte {
	var word [32]byte
	if itemID != nil {
		itemID.FillBytes(word[:])
	}
	return word[:]
}

// --- registry ---

func (m *Manager) RegistryGet(key [32]byte) ([32]byte, bool, error) {
	var id [32]byte
	raw, err := m.db.Get(hashKey(registryPrefix, key[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return id, false, nil
	}
	if err != nil {
		return id, false, err
	}
	if len(raw) != 32 {
		return id, false, fmt.Errorf("state: malformed registry record")
	}
	copy(id[:], raw)
	return id, true, nil
}

func (m *Manager) RegistryPut(key [32]byte, poolID [32]byte) error {
	if err := m.db.Put(hashKey(registryPrefix, key[:]), poolID[:]); err != nil {
		return err
	}
	index, err := m.registryIndex()
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].Key == key {
			index[i].PoolID = poolID
			return m.putRegistryIndex(index)
		}
	}
	index = append(index, registryEntry{Key: key, PoolID: poolID})
	return m.putRegistryIndex(index)
}

func (m *Manager) RegistryDelete(key [32]byte) error {
	if err := m.db.Delete(hashKey(registryPrefix, key[:])); err != nil {
		return err
	}
	index, err := m.registryIndex()
	if err != nil {
		return err
	}
	filtered := index[:0]
	for _, entry := range index {
		if entry.Key != key {
			filtered = append(filtered, entry)
		}
	}
	return m.putRegistryIndex(filtered)
}

func (m *Manager) RegistryList() ([][32]byte, error) {
	index, err := m.registryIndex()
	if err != nil {
		return nil, err
	}
	ids := make([][32]byte, 0, len(index))
	for _, entry := range index {
		ids = append(ids, entry.PoolID)
	}
	return ids, nil
}

func (m *Manager) registryIndex() ([]registryEntry, error) {
	raw, err := m.db.Get(registryIndexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var index []registryEntry
	if err := rlp.DecodeBytes(raw, &index); err != nil {
		return nil, fmt.Errorf("state: decode registry index: %w", err)
	}
	return index, nil
}

func (m *Manager) putRegistryIndex(index []registryEntry) error {
	raw, err := rlp.EncodeToBytes(index)
	if err != nil {
		return fmt.Errorf("state: encode registry index: %w", err)
	}
	return m.db.Put(registryIndexKey, raw)
}

// NextPoolSeq returns the creation sequence number and increments the
// counter.
func (m *Manager) NextPoolSeq() (uint64, error) {
	var seq uint64
	raw, err := m.db.Get(poolSeqKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	if len(raw) == 8 {
		seq = binary.BigEndian.Uint64(raw)
	}
	var next [8]byte
	binary.BigEndian.PutUint64(next[:], seq+1)
	if err := m.db.Put(poolSeqKey, next[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
