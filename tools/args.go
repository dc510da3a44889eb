package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/everydev1618/fincoach/errdefs"
)

// ParamDef defines a tool parameter.
type ParamDef struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Required    bool     `json:"required" yaml:"required"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

var validTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
}

// Args holds arguments that passed schema validation. Values are normalized:
// strings are string, numbers are decimal.Decimal, integers are int64 and
// booleans are bool.
type Args map[string]any

// String returns a string argument or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Decimal returns a number argument or zero.
func (a Args) Decimal(name string) decimal.Decimal {
	d, _ := a[name].(decimal.Decimal)
	return d
}

// Int returns an integer argument or 0.
func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

// Bool returns a boolean argument or false.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Has reports whether the argument was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// validate checks raw arguments against params and normalizes them.
// Arguments not declared in params are rejected.
func validate(params map[string]ParamDef, raw map[string]any) (Args, error) {
	out := make(Args, len(params))

	for name := range raw {
		if _, ok := params[name]; !ok {
			return nil, errdefs.Invalid(name, "unknown argument")
		}
	}

	for name, p := range params {
		v, ok := raw[name]
		if !ok || v == nil {
			if p.Default != nil {
				v = p.Default
			} else if p.Required {
				return nil, errdefs.Invalid(name, "is required")
			} else {
				continue
			}
		}

		nv, err := coerce(p.Type, v)
		if err != nil {
			return nil, &errdefs.ValidationError{Field: name, Message: "invalid value", Err: err}
		}
		if len(p.Enum) > 0 {
			s := fmt.Sprint(nv)
			if !slices.Contains(p.Enum, s) {
				return nil, errdefs.Invalid(name, "must be one of %s, got %q", strings.Join(p.Enum, ", "), s)
			}
		}
		out[name] = nv
	}
	return out, nil
}

func coerce(typ string, v any) (any, error) {
	switch typ {
	case "string":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case "number":
		return toDecimal(v)

	case "integer":
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		if !d.IsInteger() {
			return nil, fmt.Errorf("expected integer, got %s", d)
		}
		if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
			return nil, fmt.Errorf("integer %s out of range", d)
		}
		return d.IntPart(), nil

	case "boolean":
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	}
	return nil, fmt.Errorf("unsupported type %q", typ)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("expected finite number, got %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("expected number, got %q", n)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("expected number, got %T", v)
}
