package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// Borsh encoding helpers for program instruction arguments.

// AppendString appends a u32-length-prefixed UTF-8 string.
func AppendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// AppendU64 appends a little-endian unsigned 64-bit integer.
func AppendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// AppendPubkey appends the raw 32 bytes of a base58 display address.
func AppendPubkey(buf []byte, displayKey string) ([]byte, error) {
	raw, err := base58.Decode(displayKey)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", displayKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("pubkey %q is not 32 bytes", displayKey)
	}
	return append(buf, raw...), nil
}
