// Package alert models 32-bit alert ("Guru Meditation") codes.
//
// Layout of a code:
//
//	bit  31     dead-end flag (set on the fatal variant)
//	bits 30..24 subsystem (library, device or resource that raised it)
//	bits 23..16 general error class
//	bits 15..0  subsystem-specific detail
//
// CPU exceptions use subsystem 0 with the vector number in the low bits.
package alert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amigazen/insight/internal/errors"
)

// Code is a 32-bit alert code.
type Code uint32

const (
	// DeadEnd marks an unrecoverable alert.
	DeadEnd Code = 0x80000000

	// NoAlert is reported when no alert is pending. The knowledge base
	// also uses it as its end-of-table marker.
	NoAlert Code = 0xFFFFFFFF

	// HexDigits is the exact number of digits Parse accepts.
	HexDigits = 8
)

// IsFatal reports whether the dead-end bit is set.
func (c Code) IsFatal() bool {
	return c&DeadEnd != 0
}

// Fatal returns c with the dead-end bit set.
func (c Code) Fatal() Code {
	return c | DeadEnd
}

// Recoverable returns c with the dead-end bit cleared.
func (c Code) Recoverable() Code {
	return c &^ DeadEnd
}

// Severity returns "fatal" or "recoverable".
func (c Code) Severity() string {
	if c.IsFatal() {
		return "fatal"
	}
	return "recoverable"
}

// String formats c as 0x followed by eight upper-case hex digits.
func (c Code) String() string {
	return fmt.Sprintf("0x%08X", uint32(c))
}

// Specific returns the low 16 bits.
func (c Code) Specific() uint16 {
	return uint16(c & 0xFFFF)
}

// Parse converts text such as "8000000B" or "0x8000000b" into a Code.
// Exactly eight hex digits are required after the optional prefix.
func Parse(s string) (Code, error) {
	trimmed := strings.TrimSpace(s)
	digits := stripPrefix(trimmed)
	if len(digits) != HexDigits || !allHex(digits) {
		return 0, errors.NewInvalidCode(s)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, errors.NewInvalidCode(s)
	}
	return Code(v), nil
}

// LooksLikeHex reports whether s is an optional 0x prefix followed by one or
// more hex digits. It is looser than Parse and is used to spot a code given
// as a bare command-line argument.
func LooksLikeHex(s string) bool {
	digits := stripPrefix(s)
	return digits != "" && allHex(digits)
}

func stripPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
