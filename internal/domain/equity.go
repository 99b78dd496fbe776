package domain

import "time"

// EquityPoint es el valor de la cartera en un instante de la simulación.
// RunningPeak es el máximo de equity visto hasta este punto inclusive;
// DrawdownPct la caída desde ese pico, acotada a [0, 100].
type EquityPoint struct {
	Timestamp   time.Time
	Equity      float64
	RunningPeak float64
	DrawdownPct float64
}
