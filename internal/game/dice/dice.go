// Package dice implements parsing and rolling of dice expressions such as
// "2d6+3", "d20" or "6".
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidSpec is returned for any string that is not a well-formed
// dice expression.
var ErrInvalidSpec = errors.New("invalid dice format, use XdY+Z (e.g. 2d6+3, d20, 6)")

// specPattern matches (<count>d)?<sides>([+-]<modifier>)?. The whole input
// must match; interior whitespace is rejected.
var specPattern = regexp.MustCompile(`^(?:(\d+)?d)?(\d+)([+-]\d+)?$`)

// Spec is a parsed dice expression.
type Spec struct {
	Count    int
	Sides    int
	Modifier int
}

// Parse parses a dice expression. Outer whitespace is trimmed; a missing
// count defaults to 1 die; a missing modifier defaults to 0. Zero dice and
// zero-sided dice are rejected.
func Parse(s string) (Spec, error) {
	trimmed := strings.TrimSpace(s)
	m := specPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Spec{}, fmt.Errorf("%q: %w", s, ErrInvalidSpec)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Spec{}, fmt.Errorf("%q: %w", s, ErrInvalidSpec)
		}
		count = n
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Spec{}, fmt.Errorf("%q: %w", s, ErrInvalidSpec)
	}

	modifier := 0
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return Spec{}, fmt.Errorf("%q: %w", s, ErrInvalidSpec)
		}
		modifier = n
	}

	if count < 1 || sides < 1 {
		return Spec{}, fmt.Errorf("%q: %w", s, ErrInvalidSpec)
	}

	return Spec{Count: count, Sides: sides, Modifier: modifier}, nil
}

// String returns the canonical form of the spec, e.g. "2d6+3" or "1d20".
func (s Spec) String() string {
	out := fmt.Sprintf("%dd%d", s.Count, s.Sides)
	if s.Modifier > 0 {
		out += fmt.Sprintf("+%d", s.Modifier)
	} else if s.Modifier < 0 {
		out += strconv.Itoa(s.Modifier)
	}
	return out
}

// Roll is the outcome of rolling a spec.
type Roll struct {
	Spec  Spec
	Dice  []int
	Total int
}

// Roll rolls the spec with the given source of randomness. Every die is in
// [1, Sides] and Total is the sum of the dice plus the modifier.
func (s Spec) Roll(rng *rand.Rand) Roll {
	dice := make([]int, s.Count)
	total := s.Modifier
	for i := range dice {
		dice[i] = rng.Intn(s.Sides) + 1
		total += dice[i]
	}
	return Roll{Spec: s, Dice: dice, Total: total}
}

// String formats a roll as "2d6+3: [4 2] + 3 = 9".
func (r Roll) String() string {
	var b strings.Builder
	b.WriteString(r.Spec.String())
	b.WriteString(": [")
	for i, d := range r.Dice {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteByte(']')
	if r.Spec.Modifier > 0 {
		fmt.Fprintf(&b, " + %d", r.Spec.Modifier)
	} else if r.Spec.Modifier < 0 {
		fmt.Fprintf(&b, " - %d", -r.Spec.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total)
	return b.String()
}
