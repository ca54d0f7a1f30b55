package atlas

import (
	"fmt"
	"strings"

	heatloss "Hestia/internal/calc/heatloss"
	repo "Hestia/internal/repo"
)

// Design room temperatures by room type, CIBSE Guide A residential values.
// Recorded on the room for reference; the calculation temperature stays a
// building-wide parameter.
var defaultTargetTemps = map[string]float64{
	"living":   21,
	"lounge":   21,
	"dining":   21,
	"study":    21,
	"bedroom":  18,
	"kitchen":  18,
	"hall":     18,
	"landing":  18,
	"toilet":   18,
	"utility":  18,
	"bathroom": 22,
	"ensuite":  22,
}

const fallbackTargetTemp = 21.0

// TargetTempFor resolves the design temperature for a device room type.
func TargetTempFor(roomType string) float64 {
	if t, ok := defaultTargetTemps[strings.ToLower(strings.TrimSpace(roomType))]; ok {
		return t
	}
	return fallbackTargetTemp
}

// MapRooms converts the device's raw laser dimensions into engine rooms:
// floor area from length × width, volume from area × height. Rooms with a
// missing dimension cannot be calculated and are skipped; their names are
// returned so the import response can report them.
func MapRooms(rooms []SurveyRoom) (mapped []repo.Room, skipped []string) {
	for i, sr := range rooms {
		name := strings.TrimSpace(sr.Name)
		if name == "" {
			name = fmt.Sprintf("Room %d", i+1)
		}
		if sr.Length <= 0 || sr.Width <= 0 || sr.Height <= 0 {
			skipped = append(skipped, name)
			continue
		}

		area := sr.Length * sr.Width
		mapped = append(mapped, repo.Room{
			Name: name,
			Room: heatloss.Room{
				Area:          heatloss.Round(area, 2),
				Volume:        heatloss.Round(area*sr.Height, 2),
				CeilingHeight: sr.Height,
				ExteriorWalls: sr.ExteriorWalls,
				WindowArea:    sr.WindowArea,
				DoorCount:     sr.DoorCount,
				TargetTemp:    TargetTempFor(sr.RoomType),
			},
		})
	}
	return mapped, skipped
}
