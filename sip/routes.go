package sip

import (
	"regexp"
	"strings"

	"github.com/vir/ysip/header"
	"github.com/vir/ysip/internal/util"
)

var angledRe = regexp.MustCompile(`<([^>]+)>`)

// Routes returns the route set learned from the Record-Route headers
// as a list of Route lines.
// Each comma separated value becomes a line of its own.
// The order is reversed for answers.
func (m *Message) Routes() []*header.Line {
	var routes []*header.Line
	for rr := range m.HeadersNamed("Record-Route") {
		v := rr.FullValue()
		for p := 0; p >= 0; {
			var part string
			s := header.FindSep(v, ',', p)
			if s < 0 {
				part = v[p:]
				p = -1
			} else {
				part = v[p:s]
				p = s + 1
			}
			part = util.TrimBlanks(part)
			if part == "" {
				continue
			}
			l := header.NewLine("Route", part)
			if m.answer {
				routes = append([]*header.Line{l}, routes...)
			} else {
				routes = append(routes, l)
			}
		}
	}
	return routes
}

// AddRoutes applies a route set to an outgoing request. Answers are left untouched.
//
// If the first route is a strict router (no lr parameter) it becomes the Request-URI
// and the old Request-URI is added as the last route.
func (m *Message) AddRoutes(routes []*header.Line) {
	if m.answer || len(routes) == 0 {
		return
	}
	var last *header.Line
	first := routes[0].FullValue()
	if sm := angledRe.FindStringSubmatch(first); sm != nil {
		first = sm[1]
	}
	if !strings.Contains(first, ";lr") {
		last = header.NewLine("Route", "<"+m.URI+">")
		m.URI = first
		routes = routes[1:]
	}
	for _, r := range routes {
		m.AppendHeader(r.CloneAs("Route"))
	}
	if last != nil {
		m.AppendHeader(last)
	}
}
