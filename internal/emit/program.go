// Package emit lowers a finalized graph into one ordered program per root
// location.
//
// Every statement that produces a stream is named stream_N. N comes from a
// single counter shared by all locations, so identifiers are unique across
// the whole deployment even though statements are bucketed per location.
package emit

import (
	"slices"
	"strings"

	"github.com/roach88/flowc/internal/location"
)

// Statement is one instruction of a program. Ident is empty for statements
// that produce no stream, such as for_each or the sender half of a network
// edge. Text may span several lines.
type Statement struct {
	Ident string
	Text  string
}

// Program is the ordered instruction list of one root location.
type Program struct {
	Location   location.ID
	Statements []Statement
}

// String renders one statement per line.
func (p *Program) String() string {
	var sb strings.Builder
	for _, st := range p.Statements {
		sb.WriteString(st.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Programs maps root locations to their programs. Keys are always roots,
// so Process(0) and Cluster(0) get separate programs.
type Programs map[location.ID]*Program

// Locations returns the root locations in location.Compare order.
func (ps Programs) Locations() []location.ID {
	ids := make([]location.ID, 0, len(ps))
	for id := range ps {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, location.Compare)
	return ids
}

// Statements returns the total statement count.
func (ps Programs) Statements() int {
	n := 0
	for _, p := range ps {
		n += len(p.Statements)
	}
	return n
}

func (ps Programs) add(loc location.ID, ident, text string) {
	root := loc.Root()
	p, ok := ps[root]
	if !ok {
		p = &Program{Location: root}
		ps[root] = p
	}
	p.Statements = append(p.Statements, Statement{Ident: ident, Text: text})
}
