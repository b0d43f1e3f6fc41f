package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidArgument is returned when a command-line argument doesn't fit its ABI type.
var ErrInvalidArgument = errors.New("invalid argument")

// ConvertArgs turns string arguments into the Go values abi.Pack expects
// for the method's inputs.
func ConvertArgs(m abi.Method, args []string) ([]any, error) {
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d",
			ErrInvalidArgument, m.Sig, len(m.Inputs), len(args))
	}
	out := make([]any, len(args))
	for i, in := range m.Inputs {
		v, err := ConvertArg(in.Type, args[i])
		if err != nil {
			name := in.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, in.Type, err)
		}
		out[i] = v
	}
	return out, nil
}

// ConvertArg converts one string to a value of type t. Arrays and slices
// are written as JSON arrays, e.g. ["0xabc…","0xdef…"].
func ConvertArg(t abi.Type, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%w: %q is not an address", ErrInvalidArgument, s)
		}
		return common.HexToAddress(s), nil

	case abi.BoolTy:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrInvalidArgument, s)
		}
		return b, nil

	case abi.StringTy:
		return s, nil

	case abi.IntTy, abi.UintTy:
		return convertInt(t, s)

	case abi.BytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s, err)
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, s, err)
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%w: %d bytes exceeds bytes%d", ErrInvalidArgument, len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		return convertList(t, s)

	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidArgument, t)
	}
}

func convertInt(t abi.Type, s string) (any, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, s)
	}
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidArgument, s)
	}
	if n.BitLen() > t.Size {
		return nil, fmt.Errorf("%w: %s overflows %s", ErrInvalidArgument, s, t)
	}
	if t.Size > 64 {
		return n, nil
	}

	v := reflect.New(t.GetType()).Elem()
	if t.T == abi.UintTy {
		v.SetUint(n.Uint64())
	} else {
		if v.OverflowInt(n.Int64()) || !n.IsInt64() {
			return nil, fmt.Errorf("%w: %s overflows %s", ErrInvalidArgument, s, t)
		}
		v.SetInt(n.Int64())
	}
	return v.Interface(), nil
}

func convertList(t abi.Type, s string) (any, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("%w: %s expects a JSON array: %v", ErrInvalidArgument, t, err)
	}

	var list reflect.Value
	if t.T == abi.ArrayTy {
		if len(items) != t.Size {
			return nil, fmt.Errorf("%w: %s expects %d elements, got %d", ErrInvalidArgument, t, t.Size, len(items))
		}
		list = reflect.New(t.GetType()).Elem()
	} else {
		list = reflect.MakeSlice(t.GetType(), len(items), len(items))
	}

	for i, raw := range items {
		item := string(raw)
		var str string
		if json.Unmarshal(raw, &str) == nil {
			item = str
		}
		v, err := ConvertArg(*t.Elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		list.Index(i).Set(reflect.ValueOf(v))
	}
	return list.Interface(), nil
}

// FormatValue renders a value returned by abi.Unpack for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case *big.Int:
		return x.String()
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
