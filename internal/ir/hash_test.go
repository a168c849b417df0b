package ir

import (
	"testing"

	"github.com/roach88/flowc/internal/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"int", Int(-100), "-100"},
		{"bool", Bool(true), "true"},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"sorted keys", Object{"zebra": Int(1), "alpha": Int(2)}, `{"alpha":2,"zebra":1}`},
		{"no html escape", String("a<b>&c"), `"a<b>&c"`},
		{"line separator", String("a\u2028b"), "\"a\u2028b\""},
		{"escaped backslash kept", String(`\u2028`), `"\\u2028"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	result, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(result))
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(List{nil})
	require.Error(t, err)
}

func TestSortedKeysUTF16(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	obj := Object{"\uff61": Int(1), "\U0001F600": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestFingerprint_Deterministic(t *testing.T) {
	g1, _ := sharedGraph()
	g2, _ := sharedGraph()

	fp1, err := Fingerprint(g1)
	require.NoError(t, err)
	fp2, err := Fingerprint(g2)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

// TestFingerprint_IgnoresArenaLayout verifies a transform pass that moves
// shared nodes to new cells does not change the identity.
func TestFingerprint_IgnoresArenaLayout(t *testing.T) {
	g, _ := sharedGraph()
	before, err := Fingerprint(g)
	require.NoError(t, err)

	g.TransformLeaves(func(*Node) {})

	after, err := Fingerprint(g)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFingerprint_SharingIsSignificant(t *testing.T) {
	shared, _ := sharedGraph()

	p := location.Process(0)
	mk := func() Node {
		return &Map{F: "|x| x + 1", Input: src("0..10", p), Metadata: Metadata{Location: p}}
	}
	arena := NewArena()
	a, b := arena.Share(mk()), arena.Share(mk())
	duplicated := NewGraph(arena,
		&ForEach{F: "|x| println!(x)", Input: &Tee{Ref: a, Metadata: Metadata{Location: p}}},
		&DestSink{Sink: "sink", Input: &Tee{Ref: b, Metadata: Metadata{Location: p}}},
	)

	fp1, err := Fingerprint(shared)
	require.NoError(t, err)
	fp2, err := Fingerprint(duplicated)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}

func TestProgramHash_DomainSeparated(t *testing.T) {
	assert.Equal(t, ProgramHash("x"), ProgramHash("x"))
	assert.NotEqual(t, ProgramHash("x"), hashWithDomain(DomainGraph, []byte("x")))
}

