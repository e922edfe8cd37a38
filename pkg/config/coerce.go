package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/specvital/pester/pkg/domain"
)

// ErrInvalidValue is wrapped by every coercion and validation failure.
var ErrInvalidValue = errors.New("config: invalid value")

// outcome tags the result of decoding a single key.
type outcome int

const (
	// outcomeDefault means the key was absent or null and the default stays.
	outcomeDefault outcome = iota
	// outcomeValue means the key was present and assigned.
	outcomeValue
	// outcomeInvalid means the key was present but could not be coerced.
	outcomeInvalid
)

// FieldError reports a problem with one option of one section.
type FieldError struct {
	Section string
	Key     string
	Err     error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s.%s: %v", e.Section, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// isFatal reports whether a coercion failure must abort construction instead
// of falling back to the default.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrInvalidContainerType)
}

func coerce[T any](raw any) (T, error) {
	var zero T
	var (
		v   any
		err error
	)
	switch any(zero).(type) {
	case bool:
		v, err = toBool(raw)
	case string:
		v, err = toString(raw)
	case []string:
		v, err = toStringSlice(raw)
	case float64:
		v, err = toFloat(raw)
	case int:
		v, err = toInt(raw)
	case []ContainerInfo:
		v, err = toContainerInfos(raw)
	default:
		return zero, fmt.Errorf("%w: unsupported option type %T", ErrInvalidValue, zero)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
		}
		return b, nil
	}
	if f, ok := toNumber(raw); ok {
		return f != 0, nil
	}
	return false, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, raw)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("%w: %T is not a string", ErrInvalidValue, raw)
}

func toStringSlice(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case string, fmt.Stringer:
		s, _ := toString(v)
		return []string{s}, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T is not a string array", ErrInvalidValue, raw)
}

func toFloat(raw any) (float64, error) {
	if s, ok := raw.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
		}
		return f, nil
	}
	if f, ok := toNumber(raw); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, raw)
}

func toInt(raw any) (int, error) {
	if s, ok := raw.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
		}
		return n, nil
	}
	f, ok := toNumber(raw)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, raw)
	}
	return int(f), nil
}

// toNumber unboxes any native numeric type.
func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func toContainerInfos(raw any) ([]ContainerInfo, error) {
	switch v := raw.(type) {
	case []ContainerInfo:
		out := make([]ContainerInfo, len(v))
		copy(out, v)
		return out, nil
	case ContainerInfo:
		return []ContainerInfo{v}, nil
	case []any:
		out := make([]ContainerInfo, 0, len(v))
		for i, item := range v {
			ci, err := toContainerInfo(item)
			if err != nil {
				return nil, fmt.Errorf("container %d: %w", i, err)
			}
			out = append(out, ci)
		}
		return out, nil
	}
	if _, ok := asMap(raw); ok {
		ci, err := toContainerInfo(raw)
		if err != nil {
			return nil, err
		}
		return []ContainerInfo{ci}, nil
	}
	return nil, fmt.Errorf("%w: %T is not a container list", ErrInvalidValue, raw)
}

func toContainerInfo(raw any) (ContainerInfo, error) {
	if ci, ok := raw.(ContainerInfo); ok {
		return ci, nil
	}
	m, ok := asMap(raw)
	if !ok {
		return ContainerInfo{}, fmt.Errorf("%w: %T is not a container", ErrInvalidValue, raw)
	}

	typ := string(domain.ContainerTypeFile)
	if t, found := lookup(m, "Type"); found && t != nil {
		s, err := toString(t)
		if err != nil {
			return ContainerInfo{}, err
		}
		typ = s
	}
	var item string
	if it, found := lookup(m, "Item"); found && it != nil {
		s, err := toString(it)
		if err != nil {
			return ContainerInfo{}, err
		}
		item = s
	}
	var data []map[string]any
	if d, found := lookup(m, "Data"); found && d != nil {
		rows, err := toDataRows(d)
		if err != nil {
			return ContainerInfo{}, err
		}
		data = rows
	}
	return NewContainerInfo(typ, item, data...)
}

func toDataRows(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("%w: data row %d is %T, not a map", ErrInvalidValue, i, item)
			}
			rows = append(rows, m)
		}
		return rows, nil
	}
	if m, ok := asMap(raw); ok {
		return []map[string]any{m}, nil
	}
	return nil, fmt.Errorf("%w: %T is not container data", ErrInvalidValue, raw)
}

// asMap accepts both string-keyed maps and the any-keyed maps some decoders produce.
func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return m, true
	}
	return nil, false
}

// lookup finds key in m ignoring case, preferring an exact match.
func lookup(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
