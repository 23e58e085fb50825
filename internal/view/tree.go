package view

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"cpuload-view/internal/sample"
)

// Title heads every rendered tree.
const Title = "Cpu load"

// Bar is one core's entry in the tree.
type Bar struct {
	Core  int     `json:"core"`
	Value float64 `json:"value"`
	// Width is the fill width as a CSS percentage, e.g. "12.5%".
	Width string `json:"width"`
	// Label is the value with two decimals, e.g. "12.50% usage".
	Label string `json:"label"`
}

// Tree is the complete visual state for one sample.
type Tree struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

// Build converts a sample into its tree, one bar per value in input order.
func Build(s sample.Sample) Tree {
	bars := make([]Bar, 0, len(s))
	for i, v := range s {
		bars = append(bars, Bar{
			Core:  i,
			Value: v,
			Width: FormatWidth(v),
			Label: FormatLabel(v),
		})
	}
	return Tree{Title: Title, Bars: bars}
}

// Values returns the raw sample the tree was built from.
func (t Tree) Values() sample.Sample {
	s := make(sample.Sample, len(t.Bars))
	for i, b := range t.Bars {
		s[i] = b.Value
	}
	return s
}

// FormatWidth renders v with the shortest exact decimal form: 87 -> "87%".
func FormatWidth(v float64) string {
	return strconv.FormatFloat(positiveZero(v), 'f', -1, 64) + "%"
}

// FormatLabel renders v with exactly two decimals: 87 -> "87.00% usage".
// Exact ties round away from zero, so 12.125 gives "12.13".
func FormatLabel(v float64) string {
	return fixed2(positiveZero(v)) + "% usage"
}

func positiveZero(v float64) float64 {
	if v == 0 {
		return math.Abs(v)
	}
	return v
}

// fixed2 formats v with two decimals. fmt rounds the exact binary value
// correctly except on ties, where it picks the even digit.
func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%.2f", v)
	}
	scaled := new(big.Float).SetPrec(128).SetFloat64(math.Abs(v))
	scaled.Mul(scaled, big.NewFloat(100))
	n, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return fmt.Sprintf("%.2f", v)
	}
	digits := n.Add(n, big.NewInt(1)).String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
}
