package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowc/internal/builder"
)

// TestAnalyzeFeedback_NoCycles tests that a graph without cycle markers
// produces no warnings.
func TestAnalyzeFeedback_NoCycles(t *testing.T) {
	b := builder.New()
	p := b.Process()
	p.SourceIter("0..10").Map("|x| x + 1").ForEach("f")

	warnings := AnalyzeFeedback(b.Finalize())
	assert.Empty(t, warnings)
}

// TestAnalyzeFeedback_DeferredTickCycle tests that a tick cycle completed
// through defer_tick is reported at info level only.
func TestAnalyzeFeedback_DeferredTickCycle(t *testing.T) {
	b := builder.New()
	tick := b.Process().Tick()

	cyc, prev := tick.TickCycle()
	cyc.CompleteNextTick(tick.SourceIter("vec![1]").Chain(prev))

	warnings := AnalyzeFeedback(b.Finalize())
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
	assert.Equal(t, []string{"cycle_0", "cycle_0"}, warnings[0].Path)
	assert.Equal(t, "feedback loop: cycle_0 -> cycle_0", warnings[0].Message)
}

// TestAnalyzeFeedback_SameTickSelfLoop tests that a forward reference
// completed inside the same tick without defer_tick is a warning.
func TestAnalyzeFeedback_SameTickSelfLoop(t *testing.T) {
	b := builder.New()
	tick := b.Process().Tick()

	ref, s := tick.ForwardRef()
	ref.Complete(s.Map("|x| x + 1"))

	warnings := AnalyzeFeedback(b.Finalize())
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelWarning, warnings[0].Level)
	assert.Equal(t, "same-tick feedback: cycle_0 -> cycle_0 has no defer_tick", warnings[0].Message)
	assert.Equal(t, "warning: same-tick feedback: cycle_0 -> cycle_0 has no defer_tick", warnings[0].String())
}

// TestAnalyzeFeedback_TopLevelLoop tests that an undelayed loop outside a
// tick is informational.
func TestAnalyzeFeedback_TopLevelLoop(t *testing.T) {
	b := builder.New()
	p := b.Process()

	ref, s := p.ForwardRef()
	ref.Complete(s.Map("|x| x + 1"))

	warnings := AnalyzeFeedback(b.Finalize())
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
}

// TestAnalyzeFeedback_TwoNodeLoop tests path reconstruction through a
// two-identifier loop.
func TestAnalyzeFeedback_TwoNodeLoop(t *testing.T) {
	b := builder.New()
	tick := b.Process().Tick()

	r0, a := tick.ForwardRef()
	r1, c := tick.ForwardRef()
	r0.Complete(c.Map("f"))
	r1.Complete(a.Map("g"))

	warnings := AnalyzeFeedback(b.Finalize())
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"cycle_0", "cycle_1", "cycle_0"}, warnings[0].Path)
	assert.Equal(t, LevelWarning, warnings[0].Level)
	assert.Equal(t, "same-tick feedback: cycle_0 -> cycle_1 -> cycle_0 has no defer_tick", warnings[0].Message)
}

// TestAnalyzeFeedback_SharedUpstream tests that a loop seen through a
// shared node is reported once.
func TestAnalyzeFeedback_SharedUpstream(t *testing.T) {
	b := builder.New()
	tick := b.Process().Tick()

	cyc, prev := tick.TickCycle()
	s := tick.SourceIter("vec![1]").Chain(prev)
	out := s.Clone()
	cyc.CompleteNextTick(s)
	out.ForEach("f")

	warnings := AnalyzeFeedback(b.Finalize())
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
}

func TestTarjanSCC(t *testing.T) {
	graph := dependencyGraph{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	}

	sccs := tarjanSCC(graph)
	var cyclic [][]string
	for _, scc := range sccs {
		if len(scc) > 1 {
			cyclic = append(cyclic, scc)
		}
	}
	require.Len(t, cyclic, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cyclic[0])
	assert.Equal(t, []string{"a", "b", "c", "a"}, reconstructCyclePath(cyclic[0], graph))
}
