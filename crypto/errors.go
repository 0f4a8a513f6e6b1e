package crypto

import (
	"fmt"

	"github.com/microchain-org/client/common"
)

// InvalidSignatureError reports a signature that does not verify against
// the claimed author and value. It carries the underlying verification
// failure and the declared type name of the signed value.
type InvalidSignatureError struct {
	Reason   string
	TypeName string
	Author   PublicKey
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("signature for value %s by %s is not valid: %s", e.TypeName, e.Author, e.Reason)
}

// HashMismatchError reports that a value's claimed hash disagrees with
// its recomputed canonical hash.
type HashMismatchError struct {
	Expected common.Hash
	Actual   common.Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: expected %s, computed %s", e.Expected, e.Actual)
}
