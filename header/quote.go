package header

import (
	"strings"

	"github.com/vir/ysip/internal/util"
)

// Quote returns s enclosed in double quotes with inner quotes and backslashes escaped.
// A value that is already quoted is returned trimmed, with only the unescaped
// inner quotes escaped, unless force is set.
func Quote(s string, force bool) string {
	s = util.TrimBlanks(s)
	if force || len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		s = `"` + s + `"`
		force = true
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.WriteByte('"')
	inner := s[1 : len(s)-1]
	for i := 0; i < len(inner); i++ {
		switch c := inner[i]; c {
		case '\\':
			if !force && i+1 < len(inner) && (inner[i+1] == '\\' || inner[i+1] == '"') {
				sb.WriteByte(c)
				sb.WriteByte(inner[i+1])
				i++
				continue
			}
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Unquote removes surrounding double quotes and escaping backslashes from s.
// An unquoted value is only trimmed, unless force is set.
func Unquote(s string, force bool) string {
	s = util.TrimBlanks(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = util.TrimBlanks(s[1 : len(s)-1])
		force = true
	}
	if !force || strings.IndexByte(s, '\\') < 0 {
		return s
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			if i == len(s) {
				break
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// FindSep returns the index of the first sep in s at or after from that is
// neither inside a double quoted string nor inside angle brackets.
// It returns -1 if there is none.
func FindSep(s string, sep byte, from int) int {
	return findSep(s, sep, from, true)
}

func findSep(s string, sep byte, from int, brackets bool) int {
	if from < 0 {
		from = 0
	}
	var inQ, inU bool
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case inQ:
			if c == '"' {
				inQ = false
			}
		case inU:
			if c == '>' {
				inU = false
			}
		case c == sep:
			return i
		case c == '"':
			inQ = true
		case c == '<' && brackets:
			inU = true
		}
	}
	return -1
}
