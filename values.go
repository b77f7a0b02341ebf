// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind describes the documented domain of a command parameter
type ValueKind int

const (
	// KindString is free text, at most MaxStringLength bytes, no control characters
	KindString ValueKind = iota

	// KindBool renders as the single character Y or N
	KindBool

	// KindState is an on/off state field rendered as a literal word
	KindState

	// KindPort is a TCP port number in 0-65535
	KindPort

	// KindUint is a non-negative integer
	KindUint
)

// MaxStringLength is the longest string attribute value the firmware accepts
const MaxStringLength = 255

// State values for power and UID fields
const (
	StateOn    = "on"
	StateOff   = "off"
	StateReset = "reset"
)

// String returns the name of the value kind
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindState:
		return "state"
	case KindPort:
		return "port"
	case KindUint:
		return "uint"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// formatValue validates a parameter value against its spec and returns the
// wire representation
func formatValue(spec ParamSpec, value any) (string, error) {
	switch spec.Kind {
	case KindBool:
		b, err := toBool(value)
		if err != nil {
			return "", err
		}
		if b {
			return "Y", nil
		}
		return "N", nil

	case KindState:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("state must be a string, got %T", value)
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, allowed := range spec.States {
			if s == allowed {
				return s, nil
			}
		}
		return "", fmt.Errorf("state %q not in {%s}", s, strings.Join(spec.States, ", "))

	case KindPort:
		n, err := toInt(value)
		if err != nil {
			return "", err
		}
		if n < 0 || n > 65535 {
			return "", fmt.Errorf("port %d out of range 0-65535", n)
		}
		return strconv.FormatInt(n, 10), nil

	case KindUint:
		n, err := toInt(value)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", fmt.Errorf("value %d must be non-negative", n)
		}
		return strconv.FormatInt(n, 10), nil

	default:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("value must be a string, got %T", value)
		}
		if len(s) > MaxStringLength {
			return "", fmt.Errorf("value exceeds %d bytes", MaxStringLength)
		}
		for i := 0; i < len(s); i++ {
			if s[i] < 0x20 || s[i] == 0x7F {
				return "", fmt.Errorf("value contains control character at position %d", i)
			}
		}
		return s, nil
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "y", "yes", "true", "1":
			return true, nil
		case "n", "no", "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", v)
	default:
		return false, fmt.Errorf("boolean must be bool or string, got %T", value)
	}
}

func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("integer must be numeric or string, got %T", value)
	}
}

func uintToInt(v uint64) (int64, error) {
	if v > 1<<63-1 {
		return 0, fmt.Errorf("integer %d overflows", v)
	}
	return int64(v), nil
}
