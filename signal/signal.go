// Package signal scores cellular link quality from a single radio sample.
package signal

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

type Technology int

const (
	TechUnavailable Technology = iota
	Tech5G
	Tech4G
	TechOther
)

func (t Technology) String() string {
	switch t {
	case TechUnavailable:
		return "unavailable"
	case Tech5G:
		return "5g"
	case Tech4G:
		return "4g"
	case TechOther:
		return "other"
	default:
		return fmt.Sprintf("unknown technology: %d", int(t))
	}
}

// ParseTechnology maps the cell type names reported by the platform onto a
// Technology. "nr" and "lte" are the radio names, "5g" and "4g" the
// marketing ones. Unrecognised types (wifi, wcdma, gsm, ...) are TechOther.
func ParseTechnology(s string) Technology {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unavailable", "":
		return TechUnavailable
	case "nr", "5g":
		return Tech5G
	case "lte", "4g":
		return Tech4G
	default:
		return TechOther
	}
}

// Sample is one radio measurement. RSRP is in dBm, SINR in dB. For LTE
// cells SINR holds RSSNR.
type Sample struct {
	Technology Technology
	RSRP       int
	SINR       int
	Registered bool
}

// Unavailable stands in for a sample that couldn't be taken: no permission,
// no cells, or a platform error.
var Unavailable = Sample{Technology: TechUnavailable}

// Score is link quality in [0, 100].
type Score int

// Calibration. These are fixed, not tunable.
const (
	UnavailableScore Score = 50
	OtherScore       Score = 60

	rsrpWorst = -120
	rsrpBest  = -80
	sinrWorst = 0
	sinrBest  = 20

	rsrpWeight = 0.4
	sinrWeight = 0.6
)

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	} else {
		return v
	}
}

// Normalize clamps v to [worst, best] and rescales it linearly to [0, 100].
func Normalize(v, worst, best int) float64 {
	if v >= best {
		return 100
	}

	if v <= worst {
		return 0
	}

	return float64(v-worst) / float64(best-worst) * 100
}

// ScoreSample never fails. Unavailable samples score 50, non-cellular ones
// 60. 4G and 5G samples are 40% RSRP and 60% SINR, rounded.
func ScoreSample(s Sample) Score {
	switch s.Technology {
	case Tech4G, Tech5G:
		rsrp := Normalize(s.RSRP, rsrpWorst, rsrpBest)
		sinr := Normalize(s.SINR, sinrWorst, sinrBest)

		score := int(math.Round(rsrpWeight*rsrp + sinrWeight*sinr))

		return Score(clamp(score, 0, 100))
	case TechOther:
		return OtherScore
	default:
		return UnavailableScore
	}
}
