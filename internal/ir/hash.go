package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainGraph   = "flowc/graph/v1"
	DomainProgram = "flowc/program/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a graph.
//
// Two graphs with the same leaves, nodes, locations and sharing structure
// have the same fingerprint regardless of arena layout. Network synthesis
// state is not part of the identity.
func Fingerprint(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(Describe(g))
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// ProgramHash computes the identity of one emitted program text.
func ProgramHash(text string) string {
	return hashWithDomain(DomainProgram, []byte(text))
}

// Describe renders a graph as a canonical value. Shared nodes are numbered
// in first-visit order and described in full only at their first use.
func Describe(g *Graph) Object {
	d := describer{arena: g.Arena, shared: map[TeeID]int{}}
	leaves := make(List, 0, len(g.Leaves))
	for _, l := range g.Leaves {
		leaves = append(leaves, d.leaf(l))
	}
	return Object{
		"version": String(IRVersion),
		"leaves":  leaves,
	}
}

type describer struct {
	arena  *Arena
	shared map[TeeID]int
}

func (d *describer) leaf(l Leaf) Object {
	obj := Object{
		"op":    String(LeafName(l)),
		"input": d.node(*l.InputSlot()),
	}
	switch l := l.(type) {
	case *ForEach:
		obj["f"] = String(l.F)
	case *DestSink:
		obj["sink"] = String(l.Sink)
	case *CycleSink:
		obj["ident"] = String(l.Ident)
		obj["location"] = String(l.Location.String())
	}
	return obj
}

func (d *describer) node(n Node) Object {
	if _, ok := n.(*Placeholder); ok {
		Fatalf(Contract, "describe", "placeholder node visited")
	}
	meta := n.Meta()
	obj := Object{
		"op":       String(OpName(n)),
		"location": String(meta.Location.String()),
	}
	if !meta.OutputType.IsZero() {
		obj["type"] = String(meta.OutputType)
	}

	switch n := n.(type) {
	case *Tee:
		idx, ok := d.shared[n.Ref]
		if !ok {
			idx = len(d.shared)
			d.shared[n.Ref] = idx
			obj["node"] = d.node(d.arena.Load(n.Ref))
		}
		obj["shared"] = Int(idx)
		return obj
	case *Source:
		obj["expr"] = String(n.Expr)
	case *CycleSource:
		obj["ident"] = String(n.Ident)
	case *Map:
		obj["f"] = String(n.F)
	case *FlatMap:
		obj["f"] = String(n.F)
	case *Filter:
		obj["f"] = String(n.F)
	case *FilterMap:
		obj["f"] = String(n.F)
	case *Inspect:
		obj["f"] = String(n.F)
	case *Reduce:
		obj["f"] = String(n.F)
	case *ReduceKeyed:
		obj["f"] = String(n.F)
	case *Enumerate:
		obj["static"] = Bool(n.Static)
	case *Fold:
		obj["init"] = String(n.Init)
		obj["acc"] = String(n.Acc)
	case *FoldKeyed:
		obj["init"] = String(n.Init)
		obj["acc"] = String(n.Acc)
	case *Network:
		obj["from"] = String(n.From.String())
		obj["to"] = String(n.To.String())
		if n.FromKey != nil {
			obj["from_key"] = Int(*n.FromKey)
		}
		if n.ToKey != nil {
			obj["to_key"] = Int(*n.ToKey)
		}
		obj["serialize"] = String(n.Serialize)
		obj["deserialize"] = String(n.Deserialize)
	}

	children := ChildSlots(n)
	if len(children) > 0 {
		inputs := make(List, 0, len(children))
		for _, child := range children {
			inputs = append(inputs, d.node(*child))
		}
		obj["inputs"] = inputs
	}
	return obj
}
