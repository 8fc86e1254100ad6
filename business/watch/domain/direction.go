package domain

import "github.com/shopspring/decimal"

// Direction is the move of a price since the previous refresh.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// DirectionOf classifies a change in basis points.
func DirectionOf(changeBps decimal.Decimal) Direction {
	switch changeBps.Sign() {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// Arrow returns a one-character marker for tables.
func (d Direction) Arrow() string {
	switch d {
	case DirectionUp:
		return "▲"
	case DirectionDown:
		return "▼"
	default:
		return "·"
	}
}
