package utils

import "strings"

// JoinHumanReadable joins list with sep, using lastSep between the final two
// elements when it is not empty.
func JoinHumanReadable(list []string, sep, lastSep string) string {
	if lastSep == "" || len(list) < 2 {
		return strings.Join(list, sep)
	}
	return strings.Join(list[:len(list)-1], sep) + lastSep + list[len(list)-1]
}

// JoinHumanReadableProse joins list as an English enumeration:
// "a", "a and b", "a, b, and c".
func JoinHumanReadableProse(list []string) string {
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	case 2:
		return list[0] + " and " + list[1]
	default:
		return JoinHumanReadable(list, ", ", ", and ")
	}
}

// IsIdentifier reports whether s is a valid backend identifier:
// letters, digits and '_' only, not starting with a digit.
func IsIdentifier(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	return IsIdentifierPart(s)
}

// IsIdentifierPart reports whether s may appear after a '_' inside an identifier.
func IsIdentifierPart(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || isDigit(ch) || ch == '_'
		if !ok {
			return false
		}
	}
	return true
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
