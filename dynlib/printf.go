package dynlib

import (
	"fmt"
	"strings"
)

// formatC expands a C printf format using integer arguments. Floating point
// conversions cannot be recovered from integer registers and print as "?".
// A conversion with no argument left is copied verbatim. str reads a C
// string argument.
func formatC(format string, args []uintptr, str func(uintptr) string) string {
	var b strings.Builder
	next := func() (uintptr, bool) {
		if len(args) == 0 {
			return 0, false
		}
		v := args[0]
		args = args[1:]
		return v, true
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		start := i
		i++

		var conv strings.Builder
		conv.WriteByte('%')
		for i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0 {
			conv.WriteByte(format[i])
			i++
		}
		if i < len(format) && format[i] == '*' {
			if v, ok := next(); ok {
				fmt.Fprintf(&conv, "%d", int32(v))
			}
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			conv.WriteByte(format[i])
			i++
		}
		if i < len(format) && format[i] == '.' {
			conv.WriteByte('.')
			i++
			if i < len(format) && format[i] == '*' {
				if v, ok := next(); ok {
					fmt.Fprintf(&conv, "%d", int32(v))
				}
				i++
			}
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				conv.WriteByte(format[i])
				i++
			}
		}

		size := 32
		for i < len(format) && strings.IndexByte("hlLqjzt", format[i]) >= 0 {
			switch format[i] {
			case 'h':
				if size == 16 {
					size = 8
				} else {
					size = 16
				}
			default:
				size = 64
			}
			i++
		}
		if i >= len(format) {
			b.WriteString(format[start:])
			break
		}

		verb := format[i]
		switch verb {
		case '%':
			b.WriteByte('%')
			continue
		case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
			b.WriteByte('?')
			continue
		}

		v, ok := next()
		if !ok {
			b.WriteString(format[start : i+1])
			continue
		}
		s := conv.String()
		switch verb {
		case 'd', 'i':
			fmt.Fprintf(&b, s+"d", signed(v, size))
		case 'u':
			fmt.Fprintf(&b, s+"d", unsigned(v, size))
		case 'x', 'X', 'o':
			fmt.Fprintf(&b, s+string(verb), unsigned(v, size))
		case 'c':
			fmt.Fprintf(&b, s+"c", rune(byte(v)))
		case 's':
			fmt.Fprintf(&b, s+"s", str(v))
		case 'p':
			fmt.Fprintf(&b, "0x%x", uint64(v))
		case 'n':
		default:
			b.WriteString(format[start : i+1])
		}
	}
	return b.String()
}

func signed(v uintptr, size int) int64 {
	switch size {
	case 8:
		return int64(int8(v))
	case 16:
		return int64(int16(v))
	case 32:
		return int64(int32(v))
	}
	return int64(v)
}

func unsigned(v uintptr, size int) uint64 {
	switch size {
	case 8:
		return uint64(uint8(v))
	case 16:
		return uint64(uint16(v))
	case 32:
		return uint64(uint32(v))
	}
	return uint64(v)
}
