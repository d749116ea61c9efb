// Package palette assigns display colors to vehicles.
//
// ColorFor is a pure function of its inputs, so a vehicle keeps its color for
// the whole session. NextDistinct walks the hue circle by the golden ratio
// conjugate to hand out colors that sit far apart from each other.
package palette

import (
	"math"
	"math/rand"
	"sync"
	"unicode/utf16"
)

const goldenRatioConjugate = 0.618033988749895

// HashUnit folds the UTF-16 code units of s into a scalar in [0,1), so
// identifiers outside the Basic Multilingual Plane hash the same way browser
// clients hash them. The empty string maps to 0.
func HashUnit(s string) float64 {
	var hash int32
	var unit float64
	for _, u := range utf16.Encode([]rune(s)) {
		hash = (hash << 5) - hash + int32(u)
		m := hash % 256
		if m < 0 {
			m += 256
		}
		unit = float64(m) / 256
	}
	return unit
}

// ColorFor derives the color of a vehicle. The base hue is the explicit hint
// when one is given, otherwise a hash of the agency. The vehicle identifier
// perturbs the hue slightly and picks saturation and value.
func ColorFor(id, agency string, hue *float64) Color {
	base := HashUnit(agency)
	if hue != nil {
		base = *hue
	}
	v := HashUnit(id)
	return HSV(
		base+0.07*(math.Sin(math.Pi*v)-0.5),
		1-0.5*v,
		math.Cos(v*math.Pi/3)+0.4,
	)
}

// Sequence hands out visually separated colors at fixed saturation and value.
type Sequence struct {
	mu  sync.Mutex
	hue float64
}

// NewSequence starts a sequence at the given hue.
func NewSequence(start float64) *Sequence {
	return &Sequence{hue: wrapUnit(start)}
}

// Next advances the running hue and returns its color.
func (s *Sequence) Next() Color {
	s.mu.Lock()
	s.hue = math.Mod(s.hue+goldenRatioConjugate, 1)
	h := s.hue
	s.mu.Unlock()
	return HSV(h, 0.90, 0.90)
}

var distinct = NewSequence(rand.Float64())

// NextDistinct returns the next color of the process-wide sequence.
func NextDistinct() Color {
	return distinct.Next()
}
