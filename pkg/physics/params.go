// Package physics integrates the kinematic state of one car per frame.
//
// A car keeps an intended scalar speed and heading plus an actual velocity
// vector. The velocity trails the heading implied target through a grip based
// exponential filter which produces the drift feel.
package physics

import (
	"math"

	"github.com/mpapenbr/racelink/pkg/model"
)

// Params holds the tunables of the integrator. Speeds are world units per frame
// at the 60Hz baseline.
type Params struct {
	BaseMaxSpeed float64
	Accel        float64
	Brake        float64
	ReverseAccel float64
	Friction     float64
	BaseTurn     float64
	WingScaleMax float64
	// reverse speed cap relative to the effective max speed
	ReverseFraction float64
	// turn rate gain of an average suspension stiffness of 10
	SuspensionBonus float64
	// low downforce cars above this fraction of max speed understeer
	UndersteerSpeed   float64
	UndersteerAeroMin float64
	UndersteerFactor  float64
	// turn rate scale in rain with and without wet tires
	RainTurnWet   float64
	RainTurnSlick float64
	GripDry       float64
	GripRainWet   float64
	GripRainSlick float64
	// steering needs at least this much speed
	MinSteerSpeed float64
	// upper bound of dt in frame equivalents
	MaxDt float64
}

func DefaultParams() Params {
	return Params{
		BaseMaxSpeed:      12,
		Accel:             0.22,
		Brake:             0.45,
		ReverseAccel:      0.12,
		Friction:          0.985,
		BaseTurn:          0.05,
		WingScaleMax:      model.WingAngleMax,
		ReverseFraction:   0.3,
		SuspensionBonus:   0.01,
		UndersteerSpeed:   0.7,
		UndersteerAeroMin: 0.4,
		UndersteerFactor:  0.75,
		RainTurnWet:       0.9,
		RainTurnSlick:     0.7,
		GripDry:           0.18,
		GripRainWet:       0.12,
		GripRainSlick:     0.04,
		MinSteerSpeed:     0.05,
		MaxDt:             2.0,
	}
}

// Coefficients are derived from setup and weather every frame
type Coefficients struct {
	Aero     float64
	MaxSpeed float64
	TurnRate float64
	Grip     float64
}

// ReverseMax is the (negative) lower speed bound
func (c Coefficients) ReverseMax(p Params) float64 {
	return -p.ReverseFraction * c.MaxSpeed
}

// Coefficients computes the setup dependent values for the current speed
func (p Params) Coefficients(setup *model.CarSetup, weather model.Weather, speed float64) Coefficients {
	aero := clamp01((setup.FrontWing + setup.RearWing) / 2 / p.WingScaleMax)
	maxSpeed := p.BaseMaxSpeed * (1.3 - 0.5*aero)

	susp := (setup.FrontSuspension + setup.RearSuspension) / 2
	turn := p.BaseTurn*(0.5+0.5*aero) + susp/10*p.SuspensionBonus
	if aero < p.UndersteerAeroMin && math.Abs(speed) > p.UndersteerSpeed*maxSpeed {
		turn *= p.UndersteerFactor
	}

	grip := p.GripDry
	if weather == model.WeatherRainy {
		if setup.Tire == model.TireWet {
			turn *= p.RainTurnWet
			grip = p.GripRainWet
		} else {
			turn *= p.RainTurnSlick
			grip = p.GripRainSlick
		}
	}
	return Coefficients{Aero: aero, MaxSpeed: maxSpeed, TurnRate: turn, Grip: grip}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
