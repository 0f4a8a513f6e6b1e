package crypto

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/sha3"

	"github.com/microchain-org/client/common"
	"github.com/microchain-org/client/log"
)

// keyStream is a deterministic pseudorandom generator for key creation.
// It is seeded once at signer construction; every draw produces one
// 32-byte block, so replaying N draws from the same seed reproduces the
// same future stream as an uninterrupted run.
type keyStream struct {
	cipher *chacha20.Cipher
}

func newKeyStream(seed uint64) *keyStream {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	key := sha3.Sum256(seedBytes[:])
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		panic(fmt.Sprintf("crypto: cannot build key stream: %v", err))
	}
	return &keyStream{cipher: cipher}
}

func (ks *keyStream) draw() [32]byte {
	var out [32]byte
	ks.cipher.XORKeyStream(out[:], out[:])
	return out
}

// MemorySigner is the in-memory reference implementation of Signer: a
// keyring behind a single reader/writer exclusion. Reads (sign, lookup,
// contains) run concurrently; generating a key takes exclusive access.
// The keyring only grows.
type MemorySigner struct {
	mu        sync.RWMutex
	keys      map[common.Owner]*SecretKey
	stream    *keyStream
	seed      uint64
	generated uint64
}

// NewMemorySigner creates a signer whose key stream is seeded from the
// operating system's entropy source. The drawn seed is retained so the
// signer can still be persisted and replayed.
func NewMemorySigner() *MemorySigner {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto: cannot seed signer: %v", err))
	}
	return NewMemorySignerFromSeed(binary.BigEndian.Uint64(b[:]))
}

// NewMemorySignerFromSeed creates a signer with a caller-chosen seed.
// Two signers built from the same seed generate identical key streams.
func NewMemorySignerFromSeed(seed uint64) *MemorySigner {
	return &MemorySigner{
		keys:   make(map[common.Owner]*SecretKey),
		stream: newKeyStream(seed),
		seed:   seed,
	}
}

// GenerateNew draws the next key from the signer's key stream, registers
// it under its derived owner and returns the public key.
func (ms *MemorySigner) GenerateNew() PublicKey {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.generated == math.MaxUint64 {
		// Structurally impossible under legitimate use; do not try to recover.
		panic("crypto: memory signer key counter overflow")
	}
	secret := secretKeyFromScalar(ms.stream.draw())
	ms.generated++
	public := secret.Public()
	owner := public.Owner()
	ms.keys[owner] = secret
	log.Debug("generated signer key", "owner", owner.Hex())
	return public
}

// Import registers an externally created secret key and returns its
// owner. The key is copied; the caller keeps its own instance.
func (ms *MemorySigner) Import(secret *SecretKey) common.Owner {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	owner := secret.Public().Owner()
	ms.keys[owner] = secret.Copy()
	return owner
}

// Sign signs the digest with the owner's key, if the owner is known.
func (ms *MemorySigner) Sign(owner common.Owner, digest common.Hash) (Signature, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	secret, ok := ms.keys[owner]
	if !ok {
		return Signature{}, false
	}
	return SignHash(digest, secret), true
}

// GetPublic returns the public key registered for the owner.
func (ms *MemorySigner) GetPublic(owner common.Owner) (PublicKey, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	secret, ok := ms.keys[owner]
	if !ok {
		return PublicKey{}, false
	}
	return secret.Public(), true
}

// ContainsKey reports whether the owner is known to this signer.
func (ms *MemorySigner) ContainsKey(owner common.Owner) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.keys[owner]
	return ok
}

type signerKeyState struct {
	Owner  common.Owner `json:"owner"`
	Secret string       `json:"secret"`
}

type memorySignerState struct {
	Keys          []signerKeyState `json:"keys"`
	PrngSeed      uint64           `json:"prngSeed"`
	KeysGenerated uint64           `json:"keysGenerated"`
}

// MarshalJSON persists the actual secret keys plus the original seed and
// draw count. The generated keys are stored rather than re-derived so
// that imported keys survive and the stream position is explicit.
func (ms *MemorySigner) MarshalJSON() ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	keys := make([]signerKeyState, 0, len(ms.keys))
	for owner, secret := range ms.keys {
		keys = append(keys, signerKeyState{
			Owner:  owner,
			Secret: hex.EncodeToString(secret.Bytes()),
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Owner.Cmp(keys[j].Owner) < 0
	})
	return json.Marshal(memorySignerState{
		Keys:          keys,
		PrngSeed:      ms.seed,
		KeysGenerated: ms.generated,
	})
}

// UnmarshalJSON restores a persisted signer. The key stream is rebuilt
// from the original seed and advanced by the recorded number of draws,
// so subsequent GenerateNew calls continue the exact stream an
// uninterrupted signer would have produced.
func (ms *MemorySigner) UnmarshalJSON(data []byte) error {
	var state memorySignerState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	keys := make(map[common.Owner]*SecretKey, len(state.Keys))
	for _, entry := range state.Keys {
		raw, err := hex.DecodeString(entry.Secret)
		if err != nil {
			return fmt.Errorf("decoding signer key for %s: %w", entry.Owner, err)
		}
		secret, err := SecretKeyFromBytes(raw)
		if err != nil {
			return fmt.Errorf("decoding signer key for %s: %w", entry.Owner, err)
		}
		keys[entry.Owner] = secret
	}
	stream := newKeyStream(state.PrngSeed)
	for i := uint64(0); i < state.KeysGenerated; i++ {
		stream.draw()
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.keys = keys
	ms.stream = stream
	ms.seed = state.PrngSeed
	ms.generated = state.KeysGenerated
	log.Debug("restored signer keyring", "keys", len(keys), "generated", state.KeysGenerated)
	return nil
}
