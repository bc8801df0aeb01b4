package model

type Tire string

const (
	TireSoft   Tire = "soft"
	TireMedium Tire = "medium"
	TireHard   Tire = "hard"
	TireWet    Tire = "wet"
)

const (
	WingAngleMax      = 50.0
	SuspensionMin     = 1.0
	SuspensionMax     = 10.0
	DefaultWingAngle  = 25.0
	DefaultSuspension = 5.0
)

// CarSetup holds the values that feed the multiplayer physics coefficients
type CarSetup struct {
	FrontWing       float64 `json:"frontWing" msgpack:"frontWing" validate:"gte=0,lte=50"`
	RearWing        float64 `json:"rearWing" msgpack:"rearWing" validate:"gte=0,lte=50"`
	FrontSuspension float64 `json:"frontSuspension" msgpack:"frontSuspension" validate:"gte=0,lte=10"`
	RearSuspension  float64 `json:"rearSuspension" msgpack:"rearSuspension" validate:"gte=0,lte=10"`
	Tire            Tire    `json:"tire" msgpack:"tire" validate:"omitempty,oneof=soft medium hard wet"`
}

type Livery struct {
	Primary   string `json:"primary" msgpack:"primary" validate:"omitempty,hexcolor"`
	Secondary string `json:"secondary" msgpack:"secondary" validate:"omitempty,hexcolor"`
}

func DefaultSetup() CarSetup {
	return CarSetup{
		FrontWing:       DefaultWingAngle,
		RearWing:        DefaultWingAngle,
		FrontSuspension: DefaultSuspension,
		RearSuspension:  DefaultSuspension,
		Tire:            TireMedium,
	}
}
