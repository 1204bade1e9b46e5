// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package opcua

import (
	"fmt"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// toFloat64 widens any numeric variant value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// convertValue coerces a raw variant value to the schema data type, applying
// the scale factor to numeric types.
func convertValue(raw interface{}, dataType string, scale float64) (interface{}, error) {
	if scale == 0 {
		scale = 1.0
	}

	switch dataType {
	case "bool":
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		if f, ok := toFloat64(raw); ok {
			return f != 0, nil
		}
		return nil, errs.New(errs.DecodeError, "cannot convert %T to bool", raw)

	case "int":
		f, ok := toFloat64(raw)
		if !ok {
			return nil, errs.New(errs.DecodeError, "cannot convert %T to int", raw)
		}
		return int64(f * scale), nil

	case "float":
		f, ok := toFloat64(raw)
		if !ok {
			return nil, errs.New(errs.DecodeError, "cannot convert %T to float", raw)
		}
		return f * scale, nil

	case "string":
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return fmt.Sprint(raw), nil

	default:
		return nil, errs.New(errs.ConfigError, "unknown data type %q", dataType)
	}
}
