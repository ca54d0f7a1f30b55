package building

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	heatloss "Hestia/internal/calc/heatloss"
)

var ErrNoRooms = errors.New("no rooms to calculate")

// RoomInput pairs a room with the identifier the caller knows it by. The
// identifier is echoed back in the result and used to name the offending room
// when validation fails.
type RoomInput struct {
	ID   string        `json:"id"`
	Name string        `json:"name,omitempty"`
	Room heatloss.Room `json:"room"`
}

type RoomResult struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Result heatloss.Result `json:"result"`
}

// Result is the whole-building aggregate. Totals are sums of the per-room
// rounded values, rounded again at the default precision.
type Result struct {
	Rooms           []RoomResult `json:"rooms"`
	TotalHeatLoss   float64      `json:"total_heat_loss_w"`
	TotalDesignLoad float64      `json:"total_design_load_w"`
	SafetyFactor    float64      `json:"safety_factor"`
	Method          string       `json:"method"`
}

// Calculate evaluates every room against one shared parameter set. All rooms
// are validated up front so the first invalid room (in input order) rejects
// the whole building; a partial report is never produced. The per-room
// computations are independent and fan out over a small worker pool, with
// results kept in input order.
func Calculate(rooms []RoomInput, params heatloss.Params) (Result, error) {
	if len(rooms) == 0 {
		return Result{}, ErrNoRooms
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	for i, in := range rooms {
		if err := in.Room.Validate(); err != nil {
			return Result{}, fmt.Errorf("room %s: %w", label(in, i), err)
		}
	}

	workers := runtime.NumCPU()
	if workers > len(rooms) {
		workers = len(rooms)
	}

	jobs := make(chan int, workers*2)
	out := make([]heatloss.Result, len(rooms))
	errs := make([]error, len(rooms))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], errs[i] = heatloss.Calculate(rooms[i].Room, params)
			}
		}()
	}
	for i := range rooms {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Inputs were validated above, so this only trips if a room slipped
	// through; scan in input order to keep the reported error deterministic.
	for i, err := range errs {
		if err != nil {
			return Result{}, fmt.Errorf("room %s: %w", label(rooms[i], i), err)
		}
	}

	res := Result{
		Rooms:        make([]RoomResult, len(rooms)),
		SafetyFactor: heatloss.SafetyFactor,
		Method:       heatloss.MethodLabel,
	}
	var totalLoss, totalDesign float64
	for i, in := range rooms {
		res.Rooms[i] = RoomResult{ID: in.ID, Name: in.Name, Result: out[i]}
		totalLoss += out[i].TotalHeatLoss
		totalDesign += out[i].DesignHeatLoad
	}
	res.TotalHeatLoss = heatloss.Round(totalLoss, heatloss.DefaultPrecision)
	res.TotalDesignLoad = heatloss.Round(totalDesign, heatloss.DefaultPrecision)

	return res, nil
}

func label(in RoomInput, i int) string {
	if in.ID != "" {
		return in.ID
	}
	if in.Name != "" {
		return in.Name
	}
	return fmt.Sprintf("#%d", i+1)
}
