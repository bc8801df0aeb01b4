//nolint:whitespace,funlen // readability
package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/racelink/pkg/model"
)

func setupWith(wing float64) *model.CarSetup {
	s := model.DefaultSetup()
	s.FrontWing = wing
	s.RearWing = wing
	return &s
}

func TestCoefficients(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name    string
		setup   *model.CarSetup
		weather model.Weather
		speed   float64
		want    Coefficients
	}{
		{
			name:    "no wings dry",
			setup:   setupWith(0),
			weather: model.WeatherSunny,
			want:    Coefficients{Aero: 0, MaxSpeed: 15.6, TurnRate: 0.025 + 0.005, Grip: 0.18},
		},
		{
			name:    "full wings dry",
			setup:   setupWith(50),
			weather: model.WeatherSunny,
			want:    Coefficients{Aero: 1, MaxSpeed: 9.6, TurnRate: 0.05 + 0.005, Grip: 0.18},
		},
		{
			name:    "understeer at speed",
			setup:   setupWith(0),
			weather: model.WeatherSunny,
			speed:   15,
			want:    Coefficients{Aero: 0, MaxSpeed: 15.6, TurnRate: 0.030 * 0.75, Grip: 0.18},
		},
		{
			name:    "no understeer with enough downforce",
			setup:   setupWith(25),
			weather: model.WeatherSunny,
			speed:   12,
			want:    Coefficients{Aero: 0.5, MaxSpeed: 12.6, TurnRate: 0.0375 + 0.005, Grip: 0.18},
		},
		{
			name:    "rain slicks",
			setup:   setupWith(50),
			weather: model.WeatherRainy,
			want:    Coefficients{Aero: 1, MaxSpeed: 9.6, TurnRate: 0.055 * 0.7, Grip: 0.04},
		},
		{
			name: "rain wets",
			setup: func() *model.CarSetup {
				s := setupWith(50)
				s.Tire = model.TireWet
				return s
			}(),
			weather: model.WeatherRainy,
			want:    Coefficients{Aero: 1, MaxSpeed: 9.6, TurnRate: 0.055 * 0.9, Grip: 0.12},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Coefficients(tt.setup, tt.weather, tt.speed)
			assert.InDelta(t, tt.want.Aero, got.Aero, 1e-9)
			assert.InDelta(t, tt.want.MaxSpeed, got.MaxSpeed, 1e-9)
			assert.InDelta(t, tt.want.TurnRate, got.TurnRate, 1e-9)
			assert.InDelta(t, tt.want.Grip, got.Grip, 1e-9)
		})
	}
}

func TestSpeedCap(t *testing.T) {
	p := DefaultParams()
	for _, wing := range []float64{0, 25, 50} {
		setup := setupWith(wing)
		c := p.Coefficients(setup, model.WeatherSunny, 0)
		s := State{}
		for i := 0; i < 2000; i++ {
			s = p.Step(s, Input{Accelerate: true}, setup, model.WeatherSunny, 2)
			assert.LessOrEqual(t, s.Speed, c.MaxSpeed)
		}
		for i := 0; i < 2000; i++ {
			s = p.Step(s, Input{Brake: true}, setup, model.WeatherSunny, 2)
			assert.GreaterOrEqual(t, s.Speed, -0.3*c.MaxSpeed-1e-12)
		}
		assert.InDelta(t, -0.3*c.MaxSpeed, s.Speed, 1e-9)
	}
}

func TestGripConvergence(t *testing.T) {
	p := DefaultParams()
	for _, weather := range []model.Weather{model.WeatherSunny, model.WeatherRainy} {
		setup := setupWith(25)
		max := p.Coefficients(setup, weather, 0).MaxSpeed
		s := State{Speed: max, Angle: 1}
		tx, ty := math.Sin(1)*max, -math.Cos(1)*max
		prev := math.Inf(1)
		for i := 0; i < 1500; i++ {
			s = p.Step(s, Input{Accelerate: true}, setup, weather, 1)
			errDist := math.Hypot(s.VX-tx, s.VY-ty)
			assert.LessOrEqual(t, errDist, prev+1e-12)
			prev = errDist
		}
		assert.InDelta(t, max, s.Speed, 1e-9)
		assert.Less(t, prev, 1e-6)
	}
}

func TestAeroTopSpeed(t *testing.T) {
	p := DefaultParams()
	run := func(wing float64) float64 {
		setup := setupWith(wing)
		s := State{}
		for i := 0; i < 600; i++ {
			s = p.Step(s, Input{Accelerate: true}, setup, model.WeatherSunny, 1)
		}
		return s.Speed
	}
	low, high := run(0), run(50)
	assert.Greater(t, low, high+3)
}

func TestBrakeStopsBeforeReverse(t *testing.T) {
	p := DefaultParams()
	setup := setupWith(25)
	s := p.Step(State{Speed: 0.3}, Input{Brake: true}, setup, model.WeatherSunny, 1)
	assert.Equal(t, 0.0, s.Speed)
	s = p.Step(s, Input{Brake: true}, setup, model.WeatherSunny, 1)
	assert.Less(t, s.Speed, 0.0)
}

func TestSteering(t *testing.T) {
	p := DefaultParams()
	setup := setupWith(25)
	fwd := p.Step(State{Speed: 5}, Input{Right: true}, setup, model.WeatherSunny, 1)
	assert.Greater(t, fwd.Angle, 0.0)
	rev := p.Step(State{Speed: -2}, Input{Right: true}, setup, model.WeatherSunny, 1)
	assert.Less(t, rev.Angle, 0.0)
	still := p.Step(State{}, Input{Left: true}, setup, model.WeatherSunny, 1)
	assert.Equal(t, 0.0, still.Angle)
}

func TestDt(t *testing.T) {
	p := DefaultParams()
	setup := setupWith(25)
	start := State{X: 10, Y: 10, Speed: 5, Angle: 0.3, VX: 1, VY: -2}
	assert.Equal(t, start, p.Step(start, Input{Accelerate: true}, setup, model.WeatherSunny, 0))
	assert.Equal(t, start, p.Step(start, Input{Accelerate: true}, setup, model.WeatherSunny, -1))
	assert.Equal(t,
		p.Step(start, Input{Accelerate: true}, setup, model.WeatherSunny, 2),
		p.Step(start, Input{Accelerate: true}, setup, model.WeatherSunny, 30))
}

func TestVelocityMovesPosition(t *testing.T) {
	p := DefaultParams()
	setup := setupWith(25)
	s := State{X: 100, Y: 100, Speed: 5}
	for i := 0; i < 100; i++ {
		s = p.Step(s, Input{Accelerate: true}, setup, model.WeatherSunny, 1)
	}
	// heading 0 drives up the screen
	assert.Less(t, s.Y, 100.0)
	assert.InDelta(t, 100, s.X, 1e-9)
}
