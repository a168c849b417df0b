package deploy

import (
	"fmt"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// Shape is the transport category of a network edge, determined by the
// kinds of its endpoints.
type Shape int

const (
	O2O Shape = iota
	O2M
	M2O
	M2M
	E2O
	O2E
)

func (s Shape) String() string {
	switch s {
	case O2O:
		return "o2o"
	case O2M:
		return "o2m"
	case M2O:
		return "m2o"
	case M2M:
		return "m2m"
	case E2O:
		return "e2o"
	case O2E:
		return "o2e"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ShapeOf returns the shape of an edge from one location to another.
//
// It aborts for pairs that have no transport: any tick endpoint and
// external to external are invalid, external to or from a cluster is not
// implemented.
func ShapeOf(from, to location.ID) Shape {
	if from.Kind() == location.KindTick || to.Kind() == location.KindTick {
		ir.Fatalf(ir.Invalid, "compile_network", "network edge %s -> %s terminates on a tick; move it to a top-level location first", from, to)
	}

	switch from.Kind() {
	case location.KindProcess:
		switch to.Kind() {
		case location.KindProcess:
			return O2O
		case location.KindCluster:
			return O2M
		case location.KindExternal:
			return O2E
		}
	case location.KindCluster:
		switch to.Kind() {
		case location.KindProcess:
			return M2O
		case location.KindCluster:
			return M2M
		case location.KindExternal:
			ir.Fatalf(ir.NotImplemented, "compile_network", "cluster to external networks are not implemented: %s -> %s", from, to)
		}
	case location.KindExternal:
		switch to.Kind() {
		case location.KindProcess:
			return E2O
		case location.KindCluster:
			ir.Fatalf(ir.NotImplemented, "compile_network", "external to cluster networks are not implemented: %s -> %s", from, to)
		case location.KindExternal:
			ir.Fatalf(ir.Invalid, "compile_network", "cannot send from external to external: %s -> %s", from, to)
		}
	}
	ir.Fatalf(ir.Invalid, "compile_network", "unsupported network edge %s -> %s", from, to)
	return 0
}
