// Package codec implements the canonical binary encoding used for
// hashing and signing protocol values.
//
// Every value that is hashed or signed is first serialized with a
// deterministic CBOR encoding. Canonical structs carry the `toarray`
// struct tag, so fields are encoded positionally: any change to field
// order, presence, or type changes the resulting bytes, and peers must
// agree on them byte for byte.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cannot build encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cannot build decoder: %v", err))
	}
}

// Marshal serializes v into its canonical binary form.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// MustMarshal serializes v, panicking on failure. Marshaling a canonical
// protocol value cannot fail unless the type definition itself is broken,
// so a failure here is a programming error, not a runtime condition.
func MustMarshal(v interface{}) []byte {
	data, err := encMode.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("codec: failed to marshal %T: %v", v, err))
	}
	return data
}

// Unmarshal decodes canonical binary data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// Size returns the canonical serialized size of v in bytes.
func Size(v interface{}) (int, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
