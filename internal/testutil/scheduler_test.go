package testutil

import (
	"testing"

	"github.com/roach88/flowc/internal/operator"
	"github.com/stretchr/testify/assert"
)

func TestScheduler_FirstRunPerTick(t *testing.T) {
	s := NewScheduler()
	var firsts []bool
	record := func(ctx operator.Context) { firsts = append(firsts, ctx.IsFirstRunThisTick()) }

	s.Run(1, record)
	s.Run(1, record)
	s.Run(2, record)
	s.NextTick()
	s.Run(1, record)

	assert.Equal(t, []bool{true, false, true, true}, firsts)
	assert.Equal(t, int64(1), s.CurrentTick())
}

func TestScheduler_RecordsRequests(t *testing.T) {
	s := NewScheduler()
	s.Run(3, func(ctx operator.Context) {
		ctx.ScheduleSubgraph(ctx.CurrentSubgraph(), false)
	})

	assert.Equal(t, []ScheduleRequest{{Tick: 0, Subgraph: 3, Eager: false}}, s.Scheduled())

	s.Reset()
	assert.Empty(t, s.Scheduled())
	assert.Equal(t, int64(0), s.CurrentTick())
}

func TestRecordingProvider_PortsPerEndpoint(t *testing.T) {
	r := NewRecordingProvider()
	a, b := NewEndpoint("p0"), NewEndpoint("p1")

	assert.Equal(t, "p0:0", r.AllocateProcessPort(a).String())
	assert.Equal(t, "p0:1", r.AllocateProcessPort(a).String())
	assert.Equal(t, "p1:0", r.AllocateProcessPort(b).String())

	ch := r.O2O(a, Port{"p0", 0}, b, Port{"p1", 0})
	assert.Equal(t, `o2o_sink("p0:0")`, ch.Sink.String())
	assert.Empty(t, r.Connected())
	ch.Connect()
	assert.Equal(t, []string{"o2o p0:0 -> p1:0"}, r.Connected())
}
