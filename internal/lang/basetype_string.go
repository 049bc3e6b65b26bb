// Code generated by "stringer -type=BaseType"; hand-transcribed in the same form, since no
// go generate is run as part of this build.

package lang

import "strconv"

func (t BaseType) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeCard:
		return "CARD"
	case TypeInt:
		return "INT"
	case TypeChar:
		return "CHAR"
	case TypeByteArray:
		return "BYTE ARRAY"
	case TypeCardArray:
		return "CARD ARRAY"
	case TypeIntArray:
		return "INT ARRAY"
	case TypePointer:
		return "POINTER"
	default:
		return "BaseType(" + strconv.Itoa(int(t)) + ")"
	}
}
