package builder

import (
	"fmt"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// serializeExpr renders the sender-side codec. Senders to a cluster emit
// (member id, payload) pairs and keep the member id outside the payload.
func serializeExpr(to location.ID) ir.Expr {
	if to.Kind() == location.KindCluster {
		return "|(id, data)| (id, bincode::serialize(&data).unwrap().into())"
	}
	return "|data| bincode::serialize(&data).unwrap().into()"
}

// deserializeExpr renders the receiver-side codec. Receivers from a
// cluster tag each element with the sending member's id.
func deserializeExpr(from location.ID, t ir.Type) ir.Expr {
	typ := "_"
	if !t.IsZero() {
		typ = t.String()
	}
	if from.Kind() == location.KindCluster {
		return ir.Expr(fmt.Sprintf("|res| { let (id, b) = res.unwrap(); (id, bincode::deserialize::<%s>(&b).unwrap()) }", typ))
	}
	return ir.Expr(fmt.Sprintf("|res| bincode::deserialize::<%s>(&res.unwrap()).unwrap()", typ))
}

// Send moves the stream to another top-level location over the network.
// The edge is synthesized later by the deployment provider.
func (s *Stream) Send(to *Location) *Stream {
	s.live("send")
	t := s.node.Meta().OutputType
	n := &ir.Network{
		From:        s.loc,
		To:          to.id,
		Serialize:   serializeExpr(to.id),
		Deserialize: deserializeExpr(s.loc, t),
		Input:       s.take("send"),
		Metadata:    ir.Metadata{Location: to.id, OutputType: t},
	}
	return s.b.stream(n, to.id)
}

// ExternalPort is a numbered port of an external process.
type ExternalPort struct {
	ProcessID int
	PortID    int
}

// SendExternal sends the stream to an external process and returns the
// port the external process reads from.
func (s *Stream) SendExternal(ext *External) ExternalPort {
	s.live("send_external")
	port := s.b.allocExternalPort()
	key := port
	n := &ir.Network{
		From:        s.loc,
		To:          ext.id,
		ToKey:       &key,
		Serialize:   serializeExpr(ext.id),
		Deserialize: "|b| b.unwrap().freeze()",
		Input:       s.take("send_external"),
		Metadata:    ir.Metadata{Location: ext.id, OutputType: s.node.Meta().OutputType},
	}
	s.b.AddLeaf(&ir.ForEach{F: "()", Input: n})
	return ExternalPort{ProcessID: ext.id.Raw(), PortID: port}
}

// External is a process outside the deployment that exchanges bytes with
// it over numbered ports.
type External struct {
	b  *FlowBuilder
	id location.ID
}

// ID returns the external process location.
func (e *External) ID() location.ID { return e.id }

// SourceBytes opens a port on which the external process sends raw byte
// frames to the location to.
func (e *External) SourceBytes(to *Location) (ExternalPort, *Stream) {
	return e.source(to, "|b| b.unwrap().freeze()", "Bytes")
}

// SourceBincode opens a port on which the external process sends values of
// type t to the location to.
func (e *External) SourceBincode(to *Location, t ir.Type) (ExternalPort, *Stream) {
	return e.source(to, deserializeExpr(e.id, t), t)
}

func (e *External) source(to *Location, deserialize ir.Expr, t ir.Type) (ExternalPort, *Stream) {
	e.b.checkOpen("source_external")
	port := e.b.allocExternalPort()
	key := port
	src := &ir.Source{
		Kind:     ir.SourceExternalNetwork,
		Metadata: ir.Metadata{Location: e.id, OutputType: t},
	}
	n := &ir.Network{
		From:        e.id,
		FromKey:     &key,
		To:          to.id,
		Deserialize: deserialize,
		Input:       src,
		Metadata:    ir.Metadata{Location: to.id, OutputType: t},
	}
	persisted := &ir.Persist{Inner: n, Metadata: ir.Metadata{Location: to.id, OutputType: t}}
	return ExternalPort{ProcessID: e.id.Raw(), PortID: port}, e.b.stream(persisted, to.id)
}
