package header

import (
	"log/slog"
	"strings"

	"github.com/vir/ysip/internal/util"
)

// Param is a header parameter.
// HasValue is false for flag parameters written without '='.
type Param struct {
	Name     string
	Value    string
	HasValue bool
}

func (p Param) String() string {
	if !p.HasValue {
		return p.Name
	}
	return p.Name + "=" + p.Value
}

// Line is a single header line: name, primary value and ordered parameters.
type Line struct {
	Name   string
	Value  string
	Params []Param
	// Sep is the parameter separator: ';' for generic lines, ',' for credential lines.
	Sep byte
}

// NewLine parses value as a generic header line.
func NewLine(name, value string) *Line {
	l := &Line{Name: name, Sep: ';'}
	sp := FindSep(value, ';', 0)
	if sp < 0 {
		l.Value = value
		return l
	}
	l.Value = util.TrimBlanks(value[:sp])
	for sp < len(value) {
		ep := FindSep(value, ';', sp+1)
		if ep <= sp {
			ep = len(value)
		}
		l.addRawParam(value[sp+1 : ep])
		sp = ep
	}
	return l
}

// NewAuthLine parses value as a credential or challenge header line.
// The primary value is the auth scheme, everything after the first space is
// a ',' separated parameter list with opaque quoted values.
func NewAuthLine(name, value string) *Line {
	l := &Line{Name: name, Sep: ','}
	sp := strings.IndexByte(value, ' ')
	if sp < 0 {
		l.Value = value
		return l
	}
	l.Value = util.TrimBlanks(value[:sp])
	for sp < len(value) {
		ep := findSep(value, ',', sp+1, false)
		if ep <= sp {
			ep = len(value)
		}
		l.addRawParam(value[sp+1 : ep])
		sp = ep
	}
	return l
}

// Parse parses value choosing the line flavor by the header name.
// Compact names are expanded.
func Parse(name, value string) *Line {
	name = Uncompact(util.TrimBlanks(name))
	value = util.TrimBlanks(value)
	if IsAuthName(name) {
		return NewAuthLine(name, value)
	}
	return NewLine(name, value)
}

func (l *Line) addRawParam(s string) {
	var p Param
	if eq := strings.IndexByte(s, '='); eq >= 0 {
		p.Name = util.TrimBlanks(s[:eq])
		p.Value = util.TrimBlanks(s[eq+1:])
		p.HasValue = true
	} else {
		p.Name = util.TrimBlanks(s)
	}
	if p.Name == "" {
		return
	}
	l.Params = append(l.Params, p)
}

// IsAuth reports whether the line uses the credential flavor.
func (l *Line) IsAuth() bool { return l.Sep == ',' }

func (l *Line) sep() byte {
	if l.Sep == 0 {
		return ';'
	}
	return l.Sep
}

func (l *Line) paramIndex(name string) int {
	if name == "" {
		return -1
	}
	for i := range l.Params {
		if util.EqFold(l.Params[i].Name, name) {
			return i
		}
	}
	return -1
}

// Param returns the first parameter with the given name.
func (l *Line) Param(name string) (Param, bool) {
	if l == nil {
		return Param{}, false
	}
	if i := l.paramIndex(name); i >= 0 {
		return l.Params[i], true
	}
	return Param{}, false
}

// ParamValue returns the value of the first parameter with the given name
// or an empty string.
func (l *Line) ParamValue(name string) string {
	p, _ := l.Param(name)
	return p.Value
}

// HasParam reports whether the line has a parameter with the given name.
func (l *Line) HasParam(name string) bool {
	_, ok := l.Param(name)
	return ok
}

// SetParam replaces the value of the first parameter with the given name
// or appends a new parameter.
func (l *Line) SetParam(name, value string) *Line {
	l.setParam(Param{Name: name, Value: value, HasValue: true})
	return l
}

// SetFlag sets a parameter without a value.
func (l *Line) SetFlag(name string) *Line {
	l.setParam(Param{Name: name})
	return l
}

func (l *Line) setParam(p Param) {
	if i := l.paramIndex(p.Name); i >= 0 {
		l.Params[i].Value = p.Value
		l.Params[i].HasValue = p.HasValue
		return
	}
	l.Params = append(l.Params, p)
}

// DelParam removes the first parameter with the given name.
func (l *Line) DelParam(name string) *Line {
	if i := l.paramIndex(name); i >= 0 {
		l.Params = append(l.Params[:i], l.Params[i+1:]...)
	}
	return l
}

// Clone returns a deep copy of the line.
func (l *Line) Clone() *Line {
	return l.CloneAs("")
}

// CloneAs returns a deep copy of the line renamed to name.
// An empty name keeps the original one.
func (l *Line) CloneAs(name string) *Line {
	if l == nil {
		return nil
	}
	l2 := *l
	if name != "" {
		l2.Name = name
	}
	if l.Params != nil {
		l2.Params = make([]Param, len(l.Params))
		copy(l2.Params, l.Params)
	}
	return &l2
}

// String returns the header line as it is written to the wire without the line terminator.
func (l *Line) String() string {
	if l == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.WriteString(l.Name)
	sb.WriteString(": ")
	l.writeValue(sb)
	return sb.String()
}

// FullValue returns the primary value followed by the parameters.
func (l *Line) FullValue() string {
	if l == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	l.writeValue(sb)
	return sb.String()
}

// AppendValue appends the primary value and the parameters to b.
func (l *Line) AppendValue(b []byte) []byte {
	return append(b, l.FullValue()...)
}

func (l *Line) writeValue(sb *strings.Builder) {
	sb.WriteString(l.Value)
	sep := l.sep()
	for i, p := range l.Params {
		if sep == ',' {
			if i > 0 {
				sb.WriteByte(sep)
			}
			sb.WriteByte(' ')
		} else {
			sb.WriteByte(sep)
		}
		sb.WriteString(p.Name)
		if p.HasValue {
			sb.WriteByte('=')
			sb.WriteString(p.Value)
		}
	}
}

// LogValue implements [slog.LogValuer].
func (l *Line) LogValue() slog.Value {
	if l == nil {
		return slog.Value{}
	}
	return slog.StringValue(l.String())
}
