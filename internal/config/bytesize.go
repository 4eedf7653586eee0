package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Size units using a binary (1024) base.
const (
	Byte     ByteSize = 1
	Kilobyte          = 1024 * Byte
	Megabyte          = 1024 * Kilobyte
)

// ByteSize is a size value that supports human-readable parsing.
//
// Examples:
//   - "256KB" = 256 * 1024 bytes
//   - "1.5 MB" = 1.5 * 1024^2 bytes
//   - "4096" = 4096 bytes (raw number still works)
//
// This type implements encoding.TextUnmarshaler for Viper/YAML support.
type ByteSize int64

var byteUnits = []struct {
	suffix string
	size   ByteSize
}{
	// longest suffixes first so "kb" is not read as "b"
	{"kib", Kilobyte},
	{"mib", Megabyte},
	{"kb", Kilobyte},
	{"mb", Megabyte},
	{"k", Kilobyte},
	{"m", Megabyte},
	{"b", Byte},
}

// ParseByteSize parses a human-readable byte size string.
func ParseByteSize(s string) (ByteSize, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return 0, fmt.Errorf("bytesize: empty string")
	}

	multiplier := Byte
	for _, u := range byteUnits {
		if strings.HasSuffix(str, u.suffix) {
			multiplier = u.size
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(str, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("bytesize: invalid format %q", s)
	}
	return ByteSize(value * float64(multiplier)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML/Viper support.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Bytes returns the size in bytes as int64.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

// String returns a human-readable string representation.
func (b ByteSize) String() string {
	switch {
	case b >= Megabyte && b%Megabyte == 0:
		return fmt.Sprintf("%dMB", b/Megabyte)
	case b >= Kilobyte && b%Kilobyte == 0:
		return fmt.Sprintf("%dKB", b/Kilobyte)
	default:
		return fmt.Sprintf("%dB", int64(b))
	}
}
