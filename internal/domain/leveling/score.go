package leveling

import (
	"fmt"
	"strconv"
	"strings"
)

// Score is a fixed-point value in hundredths, the precision of the
// NUMERIC(7,2) score column. Weight and level are integers, so
// (weight/100)*level is exactly weight*level hundredths.
type Score int64

const (
	MaxWeight = 100
	MaxLevel  = 255
)

// ComputeScore is the score stored when an item is written.
func ComputeScore(weight, level int) Score {
	return Score(int64(weight) * int64(level))
}

// Summarize returns the weight sum and score sum of items.
func Summarize(items []Item) (int, Score) {
	var weight int
	var score Score
	for _, item := range items {
		weight += item.Weight
		score += item.Score
	}
	return weight, score
}

func (s Score) Hundredths() int64 {
	return int64(s)
}

func (s Score) Float64() float64 {
	return float64(s) / 100
}

func (s Score) String() string {
	v := int64(s)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseScore(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScore reads a decimal with at most two fractional digits.
func ParseScore(raw string) (Score, error) {
	raw = strings.TrimSpace(raw)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("score %q has more than two decimals", raw)
	}
	frac += strings.Repeat("0", 2-len(frac))
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", raw, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", raw, err)
	}
	v := w*100 + f
	if negative {
		v = -v
	}
	return Score(v), nil
}
