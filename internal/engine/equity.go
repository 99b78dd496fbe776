package engine

import (
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// EquityCurve registra el valor mark-to-market de la cartera en cada
// paso de la simulación. Append-only: el pico y el drawdown de cada
// punto se fijan al añadirlo y no se recalculan después.
type EquityCurve struct {
	points []domain.EquityPoint
	peak   float64
}

// NewEquityCurve crea una curva vacía.
func NewEquityCurve() *EquityCurve {
	return &EquityCurve{}
}

// AddPoint añade un punto de equity. El pico corrido es
// max(pico anterior, equity) y el drawdown se deriva de él,
// acotado a [0, 100]. Debe llamarse en cada paso de la simulación,
// haya habido trade o no.
func (e *EquityCurve) AddPoint(at time.Time, equity float64) {
	if equity > e.peak {
		e.peak = equity
	}

	dd := 0.0
	if e.peak > 0 && equity < e.peak {
		dd = (e.peak - equity) / e.peak * 100
		if dd > 100 {
			dd = 100
		}
	}

	e.points = append(e.points, domain.EquityPoint{
		Timestamp:   at,
		Equity:      equity,
		RunningPeak: e.peak,
		DrawdownPct: dd,
	})
}

// Len devuelve el número de puntos registrados.
func (e *EquityCurve) Len() int { return len(e.points) }

// Points devuelve una copia de la curva completa.
func (e *EquityCurve) Points() []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(e.points))
	copy(out, e.points)
	return out
}

// Last devuelve el último punto; ok es false si la curva está vacía.
func (e *EquityCurve) Last() (domain.EquityPoint, bool) {
	if len(e.points) == 0 {
		return domain.EquityPoint{}, false
	}
	return e.points[len(e.points)-1], true
}

// MaxDrawdownPct devuelve el drawdown máximo de la curva.
func (e *EquityCurve) MaxDrawdownPct() float64 {
	var maxDD float64
	for _, p := range e.points {
		if p.DrawdownPct > maxDD {
			maxDD = p.DrawdownPct
		}
	}
	return maxDD
}

// AvgDrawdownPct devuelve la media del drawdown sobre todos los puntos.
func (e *EquityCurve) AvgDrawdownPct() float64 {
	if len(e.points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range e.points {
		sum += p.DrawdownPct
	}
	return sum / float64(len(e.points))
}

// DrawdownDurations devuelve la duración del episodio de drawdown más
// largo y la media de todos los episodios (0 si no hubo ninguno).
//
// Un episodio es una racha maximal de puntos consecutivos con
// drawdown > 0. Su duración se mide desde el punto del pico anterior
// (el último punto con drawdown 0 antes de la racha) hasta el último
// punto de la racha, de modo que un episodio de un solo punto también
// cuenta tiempo.
func (e *EquityCurve) DrawdownDurations() (maxDur, avgDur time.Duration) {
	var episodes []time.Duration
	start := -1 // índice del punto-pico que precede al episodio actual

	for i, p := range e.points {
		if p.DrawdownPct > 0 {
			if start == -1 {
				start = i - 1
				if start < 0 {
					start = 0
				}
			}
			continue
		}
		if start != -1 {
			episodes = append(episodes, e.points[i-1].Timestamp.Sub(e.points[start].Timestamp))
			start = -1
		}
	}
	if start != -1 {
		last := len(e.points) - 1
		episodes = append(episodes, e.points[last].Timestamp.Sub(e.points[start].Timestamp))
	}

	if len(episodes) == 0 {
		return 0, 0
	}

	var total time.Duration
	for _, d := range episodes {
		total += d
		if d > maxDur {
			maxDur = d
		}
	}
	return maxDur, total / time.Duration(len(episodes))
}
