package scale

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandFillsRange(t *testing.T) {
	for _, tc := range []struct {
		n       int
		length  float64
		padding float64
	}{
		{1, 100, 0},
		{3, 640, 0.2},
		{7, 333.3, 0.15},
		{12, 1000, 0.5},
	} {
		labels := make([]string, tc.n)
		for i := range labels {
			labels[i] = string(rune('a' + i))
		}
		b, err := NewBand(labels, 0, tc.length, tc.padding)
		require.NoError(t, err)

		total := 0.0
		for range labels {
			total += b.Bandwidth() + b.Step()*tc.padding
		}
		assert.InDelta(t, tc.length, total, 1e-9)

		last, ok := b.Position(labels[tc.n-1])
		require.True(t, ok)
		assert.InDelta(t, tc.length, last+b.Bandwidth()+b.Step()*tc.padding/2, 1e-9)
	}
}

func TestBandDeterministic(t *testing.T) {
	labels := []string{"x", "y", "z"}
	a, err := NewBand(labels, 0, 517, 0.3)
	require.NoError(t, err)
	b, err := NewBand(labels, 0, 517, 0.3)
	require.NoError(t, err)
	if a.Bandwidth() != b.Bandwidth() {
		t.Fatalf("bandwidth differs: %v vs %v", a.Bandwidth(), b.Bandwidth())
	}
	for _, l := range labels {
		pa, _ := a.Position(l)
		pb, _ := b.Position(l)
		if pa != pb {
			t.Fatalf("position of %s differs: %v vs %v", l, pa, pb)
		}
	}
}

func TestBandDuplicatesAndUnknown(t *testing.T) {
	b, err := NewBand([]string{"a", "b", "a"}, 0, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Domain())
	assert.InDelta(t, 50, b.Bandwidth(), 1e-12)
	if _, ok := b.Position("c"); ok {
		t.Fatalf("expected unknown label to be absent")
	}
	c, ok := b.Center("b")
	require.True(t, ok)
	assert.InDelta(t, 75, c, 1e-12)
}

func TestBandRejectsPadding(t *testing.T) {
	for _, p := range []float64{-0.1, 1, 1.5, math.NaN()} {
		if _, err := NewBand([]string{"a"}, 0, 10, p); !errors.Is(err, ErrInvalidPadding) {
			t.Fatalf("padding %v: expected ErrInvalidPadding, got %v", p, err)
		}
	}
}

func TestLinearEndpoints(t *testing.T) {
	s := NewLinear(0.1, 0.7, 0, 300)
	if got := s.Map(0.1); got != 0 {
		t.Fatalf("expected min to map to 0, got %v", got)
	}
	if got := s.Map(0.7); got != 300 {
		t.Fatalf("expected max to map to 300, got %v", got)
	}
	assert.InDelta(t, 150, s.Map(0.4), 1e-9)

	inv := NewLinear(0, 50, 200, 0)
	assert.Equal(t, 200.0, inv.Map(0))
	assert.Equal(t, 0.0, inv.Map(50))
	assert.InDelta(t, 100, inv.Map(25), 1e-9)

	flat := NewLinear(5, 5, 10, 90)
	assert.Equal(t, 10.0, flat.Map(5))
}

func TestSqrt(t *testing.T) {
	s := NewSqrt(0, 100, 0, 10)
	assert.Equal(t, KindSqrt, s.Kind())
	assert.InDelta(t, 5, s.Map(25), 1e-9)
	assert.Equal(t, 10.0, s.Map(100))
}

func TestLinearTicks(t *testing.T) {
	ticks := NewLinear(0, 100, 0, 1).Ticks(6)
	require.NotEmpty(t, ticks)
	if len(ticks) > 6 {
		t.Fatalf("expected at most 6 ticks, got %d", len(ticks))
	}
	for _, v := range ticks {
		if v < 0 || v > 100 {
			t.Fatalf("tick %v outside domain", v)
		}
	}
	assert.Equal(t, []float64{3}, NewLinear(3, 3, 0, 1).Ticks(5))
}

func TestOrdinalCycles(t *testing.T) {
	o, err := NewOrdinal([]string{"a", "b", "c", "a"}, []string{"red", "blue"}, "grey")
	require.NoError(t, err)
	assert.Equal(t, "red", o.Color("a"))
	assert.Equal(t, "blue", o.Color("b"))
	assert.Equal(t, "red", o.Color("c"))
	assert.Equal(t, "grey", o.Color("zzz"))
	assert.Equal(t, []string{"a", "b", "c"}, o.Domain())

	if _, err := NewOrdinal([]string{"a"}, nil, ""); !errors.Is(err, ErrEmptyPalette) {
		t.Fatalf("expected ErrEmptyPalette, got %v", err)
	}
}

func TestTimeScale(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * 24 * time.Hour)
	s := NewTime(start, end, 0, 100)
	assert.Equal(t, 0.0, s.Map(start))
	assert.Equal(t, 100.0, s.Map(end))
	assert.InDelta(t, 30, s.Map(start.Add(3*24*time.Hour)), 1e-9)
	for _, tick := range s.Ticks(5) {
		if tick.Before(start) || tick.After(end) {
			t.Fatalf("tick %v outside domain", tick)
		}
	}
}

func TestBuildAndParseKind(t *testing.T) {
	for _, k := range []Kind{KindBand, KindLinear, KindOrdinal, KindSqrt, KindTime} {
		sc, err := Build(k, Domain{Labels: []string{"a"}, Max: 1}, Range{End: 10, Colors: []string{"#000"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, k, sc.Kind())
	}
	if _, err := Build("log", Domain{}, Range{}, Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if sc, err := Build(KindOrdinal, Domain{}, Range{}, Options{}); err == nil || sc != nil {
		t.Fatalf("expected nil scale and error, got %v, %v", sc, err)
	}
	k, err := ParseKind(" Band ")
	require.NoError(t, err)
	assert.Equal(t, KindBand, k)
	if _, err := ParseKind("polar"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestExtents(t *testing.T) {
	min, max, ok := NumberExtent([]float64{3, math.NaN(), -2, 8})
	require.True(t, ok)
	assert.Equal(t, -2.0, min)
	assert.Equal(t, 8.0, max)
	if _, _, ok := NumberExtent(nil); ok {
		t.Fatalf("expected empty extent")
	}
	lo, hi := ZeroExtent([]float64{4, 9})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 9.0, hi)

	a := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(1, 0, 0)
	s, e, ok := TimeExtent([]time.Time{b, {}, a})
	require.True(t, ok)
	assert.True(t, s.Equal(a))
	assert.True(t, e.Equal(b))

	assert.Equal(t, []string{"b", "a"}, DistinctLabels([]string{"b", "a", "b"}))
}
