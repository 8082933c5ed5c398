package pool

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// NativeToken is the symbol of the chain's native currency. A pool whose
	// base token equals this sentinel prices against native balances instead
	// of a fungible token ledger.
	NativeToken = "FRX"

	// GracePeriod is the delay between a close request and the point where
	// the registry owner may withdraw stranded items.
	GracePeriod int64 = 7 * 24 * 60 * 60
)

// One is the fixed-point scale of the fractional ledger: wrapping one item
// always mints exactly One fractional units.
var One = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Pool is the aggregate for a single collection x base-token x allow-list
// root market. It is simultaneously the AMM reserve holder and the ledger of
// the fractional units derived from the collection; reserves are simply the
// vault's own balances. Identity fields are fixed at creation.
type Pool struct {
	ID            [32]byte
	Collection    [20]byte
	BaseToken     string
	AllowListRoot [32]byte

	FractionalSupply *big.Int
	ShareSupply      *big.Int

	CreatedAt int64
	// CloseAt is zero while the pool is open. Once set it never resets:
	// wrapping is disabled immediately and stranded-item withdrawal unlocks
	// when the clock reaches it.
	CloseAt int64
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.FractionalSupply = cloneBigInt(p.FractionalSupply)
	clone.ShareSupply = cloneBigInt(p.ShareSupply)
	return &clone
}

// Closed reports whether a close has been requested.
func (p *Pool) Closed() bool {
	return p != nil && p.CloseAt != 0
}

// Withdrawable reports whether the grace period has elapsed at the supplied
// timestamp.
func (p *Pool) Withdrawable(now int64) bool {
	return p.Closed() && now >= p.CloseAt
}

// Unrestricted reports whether the pool accepts arbitrary item identifiers.
// An all-zero allow-list root means no restriction; this permissiveness is
// part of the pool contract and is deliberately not tightened here.
func (p *Pool) Unrestricted() bool {
	return p == nil || p.AllowListRoot == ([32]byte{})
}

// Vault returns the address holding the pool's reserves. It is derived from
// the pool ID so every pool instance owns a distinct, collision-free vault.
func (p *Pool) Vault() [20]byte {
	var out [20]byte
	if p == nil {
		return out
	}
	digest := ethcrypto.Keccak256([]byte("pool-vault"), p.ID[:])
	copy(out[:], digest[12:])
	return out
}

// IdentityKey hashes the identity triple. The registry keeps at most one live
// pool per key; the mapping is removed again when the pool closes.
func IdentityKey(collection [20]byte, baseToken string, root [32]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(collection[:], []byte(baseToken), root[:]))
	return out
}

// NewPoolID derives a unique pool identifier from the identity triple and the
// registry's creation sequence. Including the sequence keeps IDs of closed
// and re-created pools distinct.
func NewPoolID(collection [20]byte, baseToken string, root [32]byte, seq uint64) [32]byte {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(collection[:], []byte(baseToken), root[:], seqBytes[:]))
	return out
}

// NormalizeBaseToken canonicalises a base-token symbol. The empty string is
// accepted as shorthand for the native currency.
func NormalizeBaseToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return NativeToken, nil
	}
	for _, r := range trimmed {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("pool: invalid base token symbol %q", symbol)
		}
	}
	return trimmed, nil
}

// IsNativeToken reports whether the symbol denotes the native currency.
func IsNativeToken(symbol string) bool {
	return symbol == NativeToken
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
