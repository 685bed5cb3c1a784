package util

// NextLine returns the next logical line of buf and the remainder of buf after it.
//
// Lines end with CRLF, a bare LF or a bare CR. A line starting with a space or a tab
// continues the previous one: the leading blanks are dropped and the text is appended
// as is. A NUL byte ends the input. The returned line is trimmed of blanks.
func NextLine(buf []byte) (line string, rest []byte) {
	sb := GetStringBuilder()
	defer FreeStringBuilder(sb)

	i, start := 0, 0
	for i < len(buf) {
		switch buf[i] {
		case '\r', '\n':
			sb.Write(buf[start:i])
			if buf[i] == '\r' && i+1 < len(buf) && buf[i+1] == '\n' {
				i++
			}
			i++
			j := i
			for j < len(buf) && (buf[j] == ' ' || buf[j] == '\t') {
				j++
			}
			if j == i {
				return TrimBlanks(sb.String()), buf[i:]
			}
			i, start = j, j
			continue
		case 0:
			sb.Write(buf[start:i])
			return TrimBlanks(sb.String()), buf[len(buf):]
		}
		i++
	}
	sb.Write(buf[start:])
	return TrimBlanks(sb.String()), buf[len(buf):]
}
