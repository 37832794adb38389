package graph

import "math"

// cvssMetricWeights implements the CVSS 3.1 base-score formula's
// numeric weights per the published specification (first.org CVSS
// v3.1, §7.1-7.4). No CVSS library appeared anywhere in the retrieved
// pack, so the scoring formula is hand-written against the public spec,
// the same way the teacher hand-writes its own risk-scoring math in
// pkg/models/risk.go.
var (
	weightAV          = map[string]float64{"N": 0.85, "A": 0.62, "L": 0.55, "P": 0.2}
	weightAC          = map[string]float64{"L": 0.77, "H": 0.44}
	weightPRUnchanged = map[string]float64{"N": 0.85, "L": 0.62, "H": 0.27}
	weightPRChanged   = map[string]float64{"N": 0.85, "L": 0.68, "H": 0.5}
	weightUI          = map[string]float64{"N": 0.85, "R": 0.62}
	weightCIA         = map[string]float64{"H": 0.56, "L": 0.22, "N": 0}
)

// ScoreCVSS31 computes the base score and severity band from a CVSS 3.1
// vector's metrics (spec.md §3: "score and severity are derived on
// insert from the vector per the CVSS 3.1 specification"). av/ac/pr/ui
// are single-letter metric values; s is "C" (changed) or "U" (unchanged);
// c/i/a are "H"/"L"/"N".
func ScoreCVSS31(av, ac, pr, ui, s, c, i, a string) (score float64, severity CVSSSeverity) {
	iss := 1 - (1-weightCIA[c])*(1-weightCIA[i])*(1-weightCIA[a])

	var impact float64
	changed := s == "C"
	if changed {
		impact = 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
	} else {
		impact = 6.42 * iss
	}

	prWeight := weightPRUnchanged[pr]
	if changed {
		prWeight = weightPRChanged[pr]
	}
	exploitability := 8.22 * weightAV[av] * weightAC[ac] * prWeight * weightUI[ui]

	if impact <= 0 {
		return 0, SeverityNone
	}

	var base float64
	if changed {
		base = math.Min(1.08*(impact+exploitability), 10)
	} else {
		base = math.Min(impact+exploitability, 10)
	}

	score = roundUp(base)
	return score, severityBand(score)
}

// roundUp implements CVSS 3.1's specified "round up to one decimal
// place" function, which is not ordinary rounding (it never rounds
// down).
func roundUp(x float64) float64 {
	intInput := int(math.Round(x * 100000))
	if intInput%10000 == 0 {
		return float64(intInput) / 100000
	}
	return float64(intInput/10000+1) / 10
}

// severityBand maps a 0-10 score to its CVSS qualitative severity
// rating (first.org CVSS v3.1 §5).
func severityBand(score float64) CVSSSeverity {
	switch {
	case score == 0:
		return SeverityNone
	case score < 4.0:
		return SeverityLow
	case score < 7.0:
		return SeverityMedium
	case score < 9.0:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}
