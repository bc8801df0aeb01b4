package model

// ViewBox is the declared bounding box of a track path in track space
type ViewBox struct {
	MinX   float64 `json:"minX" yaml:"minX" msgpack:"minX"`
	MinY   float64 `json:"minY" yaml:"minY" msgpack:"minY"`
	Width  float64 `json:"width" yaml:"width" msgpack:"width"`
	Height float64 `json:"height" yaml:"height" msgpack:"height"`
}

// TrackData is static track configuration supplied by the catalog
type TrackData struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// SVG path data of the centerline
	Path    string  `json:"path" yaml:"path"`
	ViewBox ViewBox `json:"viewBox" yaml:"viewBox"`
	// optional location of a richer path document (JSON) superseding Path
	PathURL string `json:"pathUrl,omitempty" yaml:"pathUrl"`
	// fraction along the path where the start/finish line is placed, in [0,1)
	StartOffset float64 `json:"startOffset" yaml:"startOffset"`
	Reverse     bool    `json:"reverse" yaml:"reverse"`
	WidthFactor float64 `json:"widthFactor,omitempty" yaml:"widthFactor"`
	Laps        int     `json:"laps,omitempty" yaml:"laps"`
	Country     string  `json:"country,omitempty" yaml:"country"`
}

// Barrier is a wall segment in world space
type Barrier struct {
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
	X2 float64 `json:"x2" msgpack:"x2"`
	Y2 float64 `json:"y2" msgpack:"y2"`
}

// Pose is a position plus heading in radians
type Pose struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Angle float64 `json:"angle" msgpack:"angle"`
}
