// services/diag/format.go
package diag

import (
	"ornament-go/types"
	"ornament-go/x/conv"
)

// AppendLine renders n as one console line without fmt:
//
//	[diag] 00000C00 power/switch primary->backup n=1
func AppendLine(dst []byte, n Notice) []byte {
	var num [20]byte
	dst = append(dst, "[diag] "...)
	dst = append(dst, conv.U32Hex(num[:], n.Tick)...)
	dst = append(dst, ' ')
	dst = append(dst, n.Source...)
	dst = append(dst, '/')
	dst = append(dst, n.Event...)
	if n.Value != nil {
		dst = append(dst, ' ')
		dst = appendValue(dst, n.Value)
	}
	return append(dst, '\n')
}

func appendValue(dst []byte, v any) []byte {
	var num [20]byte
	switch x := v.(type) {
	case string:
		return append(dst, x...)
	case bool:
		if x {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case int:
		return append(dst, conv.Itoa(num[:], int64(x))...)
	case uint32:
		return append(dst, conv.Utoa(num[:], uint64(x))...)
	case uint16:
		return append(dst, conv.Utoa(num[:], uint64(x))...)
	case types.RailSwitch:
		dst = append(dst, x.From...)
		dst = append(dst, "->"...)
		dst = append(dst, x.To...)
		dst = append(dst, " n="...)
		return append(dst, conv.Utoa(num[:], uint64(x.SwitchCount))...)
	case types.PowerStatus:
		dst = append(dst, "level="...)
		dst = append(dst, x.Level...)
		dst = append(dst, " rail="...)
		dst = append(dst, x.ActiveRail...)
		dst = append(dst, " n="...)
		dst = append(dst, conv.Utoa(num[:], uint64(x.SwitchCount))...)
		if x.Fault {
			dst = append(dst, " FAULT"...)
		}
		return dst
	case types.PatternValue:
		dst = append(dst, "phase="...)
		dst = append(dst, conv.Utoa(num[:], uint64(x.Phase))...)
		dst = append(dst, " r="...)
		dst = appendBits3(dst, x.Red)
		dst = append(dst, " g="...)
		dst = appendBits3(dst, x.Green)
		if x.Emphasis != "" {
			dst = append(dst, ' ')
			dst = append(dst, x.Emphasis...)
		}
		return dst
	default:
		return append(dst, '?')
	}
}

// appendBits3 writes a 3-bit LED mask MSB first, e.g. 101.
func appendBits3(dst []byte, m uint8) []byte {
	for i := 2; i >= 0; i-- {
		if m&(1<<i) != 0 {
			dst = append(dst, '1')
		} else {
			dst = append(dst, '0')
		}
	}
	return dst
}
