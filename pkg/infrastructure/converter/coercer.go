// Package converter provides schema-driven materialization of raw engine
// cells into typed values.
package converter

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/skiffdb/skiff/pkg/errors"
)

// Declared type families recognized by the coercion engine. Any other
// declared type passes the raw string through unchanged.
var (
	integerTypes = map[string]struct{}{
		"tinyint":  {},
		"smallint": {},
		"int":      {},
		"integer":  {},
	}
	floatTypes = map[string]struct{}{
		"float":   {},
		"real":    {},
		"double":  {},
		"decimal": {},
	}
	stringTypes = map[string]struct{}{
		"varchar": {},
		"char":    {},
		"string":  {},
	}
)

// Coerce converts one raw string cell to a typed value according to the
// column's declared type. The mapping is pure: the same inputs always
// produce the same output.
//
//	varchar family      -> string (passthrough)
//	boolean             -> bool, case-insensitive "true"/"false" only
//	bigint              -> *big.Int (arbitrary precision)
//	integer family      -> int64
//	float family        -> float64
//	anything else       -> string (passthrough)
func Coerce(value, declaredType string) (interface{}, error) {
	typ := strings.ToLower(strings.TrimSpace(declaredType))

	if _, ok := stringTypes[typ]; ok {
		return value, nil
	}

	switch typ {
	case "boolean", "bool":
		switch {
		case strings.EqualFold(value, "true"):
			return true, nil
		case strings.EqualFold(value, "false"):
			return false, nil
		default:
			return nil, errors.Newf(errors.CodeMalformedValue,
				"cannot coerce %q to boolean", value).WithDetail("value", value)
		}

	case "bigint":
		n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
		if !ok {
			return nil, errors.Newf(errors.CodeMalformedValue,
				"cannot coerce %q to bigint", value).WithDetail("value", value)
		}
		return n, nil
	}

	if _, ok := integerTypes[typ]; ok {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeMalformedValue,
				"cannot coerce %q to %s", value, typ)
		}
		return n, nil
	}

	if _, ok := floatTypes[typ]; ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeMalformedValue,
				"cannot coerce %q to %s", value, typ)
		}
		return f, nil
	}

	// Unrecognized declared type: pass the raw value through.
	return value, nil
}
