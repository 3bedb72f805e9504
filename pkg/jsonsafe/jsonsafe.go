// Package jsonsafe converts native database values into values a strict JSON
// encoder accepts, preserving semantic meaning.
//
// The converter is an ordered chain of recognizers; the first match wins and
// the final fallback is unconditional stringification. Normalization is
// idempotent: every output value is one of nil, bool, string, int64, uint64,
// float64, []any, or map[string]any, and all of those pass through unchanged.
package jsonsafe

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/netip"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxSafeInteger is the largest integral magnitude a 64-bit float represents
// exactly (2^53). Decimals beyond it fall back to strings to avoid silent
// precision loss in JSON consumers.
const maxSafeInteger = 1 << 53

// Value converts a single native database value to a JSON-safe value.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, int64, uint64:
		return x
	case float64:
		return safeFloat(x)
	case float32:
		return safeFloat(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.Seconds()
	case net.IP:
		return x.String()
	case *net.IPNet:
		if x == nil {
			return nil
		}
		return x.String()
	case net.IPNet:
		return x.String()
	case netip.Addr:
		return x.String()
	case netip.Prefix:
		return x.String()
	case uuid.UUID:
		return x.String()
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return bytesValue(x)
	case decimal.Decimal:
		return decimalValue(x)
	case *big.Int:
		return bigIntValue(x)
	case *big.Float:
		return bigFloatValue(x)
	case *big.Rat:
		if x == nil {
			return nil
		}
		return bigFloatValue(new(big.Float).SetRat(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Value(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Value(val)
		}
		return out
	}

	return reflectValue(v)
}

// Row converts every value of a row keyed by column name.
func Row(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for col, v := range row {
		out[col] = Value(v)
	}
	return out
}

// Rows converts a list of rows.
func Rows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = Row(row)
	}
	return out
}

// safeFloat guards against values a strict JSON encoder rejects.
func safeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	return f
}

// bytesValue decodes binary data as UTF-8 text when possible, otherwise
// base64-encodes it.
func bytesValue(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// decimalValue applies the convert-or-stringify rule for arbitrary-precision
// decimals: integral values under the safe bound become integers, fractional
// values that survive a float64 round trip become floats, everything else is
// returned as a precision-preserving string.
func decimalValue(d decimal.Decimal) any {
	if d.IsInteger() {
		bound := decimal.NewFromInt(maxSafeInteger)
		if d.Abs().LessThan(bound) {
			return d.IntPart()
		}
		return d.String()
	}
	f, exact := d.Float64()
	if exact && !math.IsInf(f, 0) {
		return f
	}
	return d.String()
}

func bigIntValue(i *big.Int) any {
	if i == nil {
		return nil
	}
	if i.IsInt64() {
		n := i.Int64()
		if n > -maxSafeInteger && n < maxSafeInteger {
			return n
		}
	}
	return i.String()
}

func bigFloatValue(f *big.Float) any {
	if f == nil {
		return nil
	}
	v, acc := f.Float64()
	if acc == big.Exact && !math.IsInf(v, 0) {
		return safeFloat(v)
	}
	return f.Text('g', -1)
}

// reflectValue handles the remaining shapes a driver can hand back: typed
// nils, pointers, sets, sequences, mappings, and range-like structs.
func reflectValue(v any) any {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Value(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		// A map with empty-struct values is a set; flatten to its members.
		if rv.Type().Elem() == reflect.TypeOf(struct{}{}) {
			out := make([]any, 0, rv.Len())
			for _, key := range rv.MapKeys() {
				out = append(out, Value(key.Interface()))
			}
			return out
		}
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			out[mapKey(key)] = Value(rv.MapIndex(key).Interface())
		}
		return out
	case reflect.String:
		// Covers named string types; never treated as range-like even
		// though strings carry method sets of their own.
		return rv.String()
	case reflect.Struct:
		if lower, upper, bounds, ok := rangeFields(rv); ok {
			return map[string]any{
				"lower":  Value(lower),
				"upper":  Value(upper),
				"bounds": Value(bounds),
			}
		}
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

func mapKey(key reflect.Value) string {
	if key.Kind() == reflect.String {
		return key.String()
	}
	return fmt.Sprint(key.Interface())
}

// rangeFields detects range-like values (interval types exposing lower,
// upper, and bounds accessors) by exported field names.
func rangeFields(rv reflect.Value) (lower, upper, bounds any, ok bool) {
	lf := rv.FieldByName("Lower")
	uf := rv.FieldByName("Upper")
	bf := rv.FieldByName("Bounds")
	if !lf.IsValid() || !uf.IsValid() || !bf.IsValid() {
		return nil, nil, nil, false
	}
	if !lf.CanInterface() || !uf.CanInterface() || !bf.CanInterface() {
		return nil, nil, nil, false
	}
	return lf.Interface(), uf.Interface(), bf.Interface(), true
}
