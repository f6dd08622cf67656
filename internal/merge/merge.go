// Package merge reconciles expense lists from different sources without losing or
// duplicating records.
//
// Identity is the remote id when one is known, otherwise a composite of the content
// fields. Results keep first-seen order. A remote-backed expense takes the content of
// the last copy carrying its remote id; an expense without a remote id joins the first
// remote-backed expense whose final content has the same composite key, or else every
// other local-only expense with that key. This is what lets a locally-created expense
// and its remote copy meet, and it makes Merge(Merge(a, b), b) equal Merge(a, b).
package merge

import (
	"slices"
	"strings"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
)

// Key returns the identity key of an expense within a destination.
func Key(destination string, e model.Expense) string {
	if e.RemoteID != "" {
		return "id:" + e.RemoteID
	}
	return Composite(destination, e)
}

// Composite returns the content key of an expense, ignoring any remote id.
func Composite(destination string, e model.Expense) string {
	return strings.Join([]string{
		destination,
		e.Date,
		string(e.Category),
		money.Fixed2(e.Amount),
		strings.TrimSpace(e.Description),
	}, "|")
}

// group is one output expense and the inputs folded into it.
type group struct {
	e     model.Expense
	first int // lowest input position of any member
	id    int64
	idAt  int // input position id was taken from
}

func newGroup(i int, e model.Expense) *group {
	return &group{e: e, first: i, idAt: -1}
}

// take folds the input at position i into g. The last non-zero local id wins.
func (g *group) take(i int, e model.Expense, content bool) {
	if content {
		g.e = e
	}
	if i < g.first {
		g.first = i
	}
	if e.ID != 0 && i > g.idAt {
		g.id, g.idAt = e.ID, i
	}
}

// Merge combines primary then secondary into one list. Neither input is modified.
func Merge(destination string, primary, secondary []model.Expense) []model.Expense {
	all := make([]model.Expense, 0, len(primary)+len(secondary))
	all = append(all, primary...)
	all = append(all, secondary...)

	var groups []*group
	byRemote := make(map[string]*group)
	for i, e := range all {
		if e.RemoteID == "" {
			continue
		}
		g, ok := byRemote[e.RemoteID]
		if !ok {
			g = newGroup(i, e)
			byRemote[e.RemoteID] = g
			groups = append(groups, g)
		}
		g.take(i, e, true)
	}

	byContent := make(map[string]*group, len(all))
	for _, g := range groups {
		comp := Composite(destination, g.e)
		if _, ok := byContent[comp]; !ok {
			byContent[comp] = g
		}
	}
	for i, e := range all {
		if e.RemoteID != "" {
			continue
		}
		comp := Composite(destination, e)
		g, ok := byContent[comp]
		if !ok {
			g = newGroup(i, e)
			byContent[comp] = g
			groups = append(groups, g)
		}
		// Local-only copies never change the content of a remote-backed expense.
		g.take(i, e, g.e.RemoteID == "")
	}

	slices.SortFunc(groups, func(a, b *group) int { return a.first - b.first })
	out := make([]model.Expense, 0, len(groups))
	for _, g := range groups {
		e := g.e
		e.ID = g.id
		out = append(out, e)
	}
	return out
}
