package track

import "github.com/mpapenbr/racelink/pkg/model"

// Builtin returns the tracks available without a catalog file
func Builtin() []model.TrackData {
	return []model.TrackData{
		{
			ID:   "monaco",
			Name: "Monaco",
			Path: "M 100 300 L 700 300 C 800 300 850 250 850 150 L 850 100 " +
				"Q 850 50 800 50 L 300 50 C 200 50 150 100 150 150 L 100 250 Z",
			ViewBox:     model.ViewBox{MinX: 0, MinY: 0, Width: 950, Height: 350},
			StartOffset: 0.05,
			WidthFactor: 1,
			Laps:        3,
			Country:     "MC",
		},
		{
			ID:   "monza",
			Name: "Monza Oval",
			Path: "M 200 100 L 800 100 A 100 100 0 0 1 800 300 " +
				"L 200 300 A 100 100 0 0 1 200 100 Z",
			ViewBox:     model.ViewBox{MinX: 0, MinY: 0, Width: 1000, Height: 400},
			StartOffset: 0.1,
			WidthFactor: 1.2,
			Laps:        5,
			Country:     "IT",
		},
		{
			ID:   "canyon",
			Name: "Canyon Hairpin",
			Path: "M 100 100 L 900 100 L 900 400 L 500 400 L 500 250 " +
				"L 450 250 L 450 400 L 100 400 Z",
			ViewBox:     model.ViewBox{MinX: 50, MinY: 50, Width: 900, Height: 400},
			StartOffset: 0.02,
			Reverse:     true,
			WidthFactor: 0.8,
			Laps:        3,
		},
	}
}
