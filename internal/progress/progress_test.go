package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	values []float64
}

func (r *recorder) observe(f float64) {
	r.values = append(r.values, f)
}

func (r *recorder) last() float64 {
	if len(r.values) == 0 {
		return 0
	}
	return r.values[len(r.values)-1]
}

func assertMonotonic(t *testing.T, values []float64) {
	t.Helper()
	for i, v := range values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if i > 0 {
			assert.Greater(t, v, values[i-1], "report %d regressed", i)
		}
	}
}

func TestReportClampsAndIgnoresRegressions(t *testing.T) {
	rec := &recorder{}
	s := New(rec.observe)

	for _, f := range []float64{0.2, 0.1, -3, 0.5, math.NaN(), 7, 0.9} {
		s.Report(f)
	}

	assert.Equal(t, []float64{0.2, 0.5, 1}, rec.values)
	assert.Equal(t, 1.0, s.Current())
}

func TestSubMapsOntoParentRange(t *testing.T) {
	rec := &recorder{}
	root := New(rec.observe)

	root.Report(0.1)
	child := root.Sub(0.4)
	child.Report(0.5)
	assert.InDelta(t, 0.3, rec.last(), 1e-9)
	child.Report(1)
	assert.InDelta(t, 0.5, rec.last(), 1e-9)

	// the next child starts where the previous one was reserved up to
	next := root.Sub(0.2)
	next.Report(1)
	assert.InDelta(t, 0.7, rec.last(), 1e-9)

	root.Report(1)
	assert.Equal(t, 1.0, rec.last())
	assertMonotonic(t, rec.values)
}

func TestSubWeightIsClampedToRemainder(t *testing.T) {
	rec := &recorder{}
	root := New(rec.observe)

	first := root.Sub(0.8)
	second := root.Sub(0.8)
	first.Report(1)
	second.Report(1)

	assert.Equal(t, 1.0, rec.last())
	assertMonotonic(t, rec.values)
}

func TestNestedSinksNeverExceedOne(t *testing.T) {
	rec := &recorder{}
	root := New(rec.observe)

	// a playlist of 5 items, each an import with two nested refs
	for i := 0; i < 5; i++ {
		item := root.Sub(0.9 / 5)
		item.Report(0.2)
		artist := item.Sub(0.1)
		artist.Report(1)
		album := item.Sub(0.3)
		album.Sub(0.5).Report(1)
		album.Report(1)
		item.Report(1)
	}
	root.Report(1)

	require.NotEmpty(t, rec.values)
	assert.Equal(t, 1.0, rec.last())
	assertMonotonic(t, rec.values)
}

func TestNilSinkIsNoop(t *testing.T) {
	var s *Sink
	assert.NotPanics(t, func() {
		s.Report(0.5)
		s.Sub(0.3).Report(1)
	})
	assert.Zero(t, s.Current())
	assert.Nil(t, New(nil))
}
