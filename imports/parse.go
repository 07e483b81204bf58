package imports

import (
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/nor2/wasi-harness/errors"
)

// Signature text parsing for WIT-style import declarations.
//
// Guests produced by bindgen-style toolchains often name their imports with
// the full declaration text, e.g. "a: func(x: string) -> ()". ParseSignature
// derives the core value types such a name implies, using the flat calling
// convention those toolchains lower to: a string parameter becomes a
// (pointer, length) i32 pair, and a string result becomes a trailing i32
// return-area pointer parameter.

// Pattern: [name:] func(params) [-> result]
var sigPattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_.-]*\s*:\s*)?func\s*\(([^)]*)\)\s*(?:->\s*(.+?))?\s*;?\s*$`)

// ParseSignature parses WIT-style function text into core value types.
// Accepts both the bare form "func(x: s32) -> ()" and the named form an
// import string carries, "a6: func(x: s32) -> ()".
func ParseSignature(text string) (params, results []api.ValueType, err error) {
	match := sigPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, nil, errors.New(errors.PhaseHost, errors.KindInvalidData).
			Detail("not a function signature: %q", text).
			Build()
	}

	paramsStr := strings.TrimSpace(match[1])
	resultStr := strings.TrimSpace(match[2])

	if paramsStr != "" {
		for _, p := range splitParams(paramsStr) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = strings.TrimSpace(p[idx+1:])
			}
			flat, err := flattenType(typStr)
			if err != nil {
				return nil, nil, err
			}
			params = append(params, flat...)
		}
	}

	if resultStr != "" && resultStr != "()" {
		if strings.HasPrefix(resultStr, "(") {
			return nil, nil, errors.Unsupported(errors.PhaseHost, "tuple results in signature text")
		}
		if resultStr == "string" {
			// Return area pointer, written by the host before returning.
			params = append(params, api.ValueTypeI32)
		} else {
			flat, err := flattenType(resultStr)
			if err != nil {
				return nil, nil, err
			}
			if len(flat) != 1 {
				return nil, nil, errors.Unsupported(errors.PhaseHost, "compound result type "+resultStr)
			}
			results = flat
		}
	}

	return params, results, nil
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

// flattenType maps one WIT type name to its core representation.
func flattenType(s string) ([]api.ValueType, error) {
	switch strings.TrimSpace(s) {
	case "bool", "char", "s8", "u8", "s16", "u16", "s32", "u32":
		return []api.ValueType{api.ValueTypeI32}, nil
	case "s64", "u64":
		return []api.ValueType{api.ValueTypeI64}, nil
	case "f32", "float32":
		return []api.ValueType{api.ValueTypeF32}, nil
	case "f64", "float64":
		return []api.ValueType{api.ValueTypeF64}, nil
	case "string":
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil
	default:
		return nil, errors.Unsupported(errors.PhaseHost, "type "+s+" in signature text")
	}
}
