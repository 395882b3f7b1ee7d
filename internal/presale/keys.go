package presale

import (
	"fmt"

	"github.com/mr-tron/base58"
)

func decode32(displayKey string) ([]byte, error) {
	raw, err := base58.Decode(displayKey)
	if err != nil {
		return nil, fmt.Errorf("decode key %q: %w", displayKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key %q is not 32 bytes", displayKey)
	}
	return raw, nil
}

func encode32(raw []byte) string {
	return base58.Encode(raw)
}
