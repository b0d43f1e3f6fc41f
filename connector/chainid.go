package connector

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseChainID normalizes a chain id as wallets send it: integer kinds,
// JSON numbers, big integers, decimal strings and 0x-prefixed hex strings.
func ParseChainID(v any) (int64, error) {
	var id int64
	switch x := v.(type) {
	case int:
		id = int64(x)
	case int32:
		id = int64(x)
	case int64:
		id = x
	case uint32:
		id = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("chain id %d out of range", x)
		}
		id = int64(x)
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 {
			return 0, fmt.Errorf("chain id %v is not an integer", x)
		}
		id = int64(x)
	case hexutil.Uint64:
		return ParseChainID(uint64(x))
	case *big.Int:
		if x == nil || !x.IsInt64() {
			return 0, fmt.Errorf("chain id %v out of range", x)
		}
		id = x.Int64()
	case *hexutil.Big:
		return ParseChainID((*big.Int)(x))
	case json.Number:
		return ParseChainID(string(x))
	case json.RawMessage:
		var inner any
		if err := json.Unmarshal(x, &inner); err != nil {
			return 0, fmt.Errorf("decoding chain id: %w", err)
		}
		return ParseChainID(inner)
	case string:
		s := strings.TrimSpace(x)
		var err error
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			id, err = strconv.ParseInt(s[2:], 16, 64)
		} else {
			id, err = strconv.ParseInt(s, 10, 64)
		}
		if err != nil {
			return 0, fmt.Errorf("invalid chain id %q: %w", x, err)
		}
	default:
		return 0, fmt.Errorf("unsupported chain id type %T", v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid chain id %d", id)
	}
	return id, nil
}
