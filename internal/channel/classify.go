package channel

import (
	"math"

	"QuantChannel/internal/model"
)

// maxPotentialReturn bounds the potential-return estimate in percent.
const maxPotentialReturn = 1000.0

// Classify maps the last price against the last channel bands to a trading
// signal and a potential-return estimate in percent. A price exactly on the
// upper band counts as a breakout; a near-exact fit can place the band right
// on the last close and that still reads as overextended.
//
// The HOLD estimate favors the nearer band: the smaller of the up-move and
// down-move, falling back to the up-move alone when the down-move is
// non-positive. That asymmetry is carried over from the reference behavior.
func Classify(ch *model.Channel, lastPrice float64) (model.Signal, float64) {
	n := len(ch.Upper)
	if n == 0 || lastPrice <= 0 {
		return model.SignalHold, 0
	}
	upper := ch.Upper[n-1]
	lower := ch.Lower[n-1]

	var signal model.Signal
	var potential float64

	switch {
	case lastPrice < lower:
		signal = model.SignalBuy
		if upper > lastPrice {
			potential = (upper - lastPrice) / lastPrice * 100
		}
	case lastPrice >= upper:
		signal = model.SignalSell
		if lastPrice > lower {
			potential = (lastPrice - lower) / lastPrice * 100
		}
	default:
		signal = model.SignalHold
		upMove := (upper - lastPrice) / lastPrice * 100
		downMove := (lastPrice - lower) / lastPrice * 100
		if downMove > 0 && downMove < upMove {
			potential = downMove
		} else {
			potential = upMove
		}
	}

	if math.IsNaN(potential) || math.IsInf(potential, 0) {
		potential = 0
	}
	if potential > maxPotentialReturn {
		potential = maxPotentialReturn
	}
	if potential < -maxPotentialReturn {
		potential = -maxPotentialReturn
	}
	return signal, potential
}
