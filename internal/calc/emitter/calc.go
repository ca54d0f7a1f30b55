package emitter

import (
	"errors"
	"math"

	heatloss "Hestia/internal/calc/heatloss"
)

// Emitter outputs are rated at the 75/65/20 condition; off-standard operation
// is corrected with the manufacturer exponent n = 1.3.
const (
	DefaultFlowTemp   = 75.0
	DefaultReturnTemp = 65.0
	DefaultRoomTemp   = 20.0

	StandardTempDiff   = 50.0 // (75+65)/2 - 20
	CorrectionExponent = 1.3
)

var (
	ErrDesignLoadNotPositive = errors.New("Design heat load must be greater than 0")
	ErrInvalidTemperatures   = errors.New("invalid temperature configuration")
)

type Input struct {
	DesignHeatLoad float64 `json:"design_heat_load_w"`
	FlowTemp       float64 `json:"flow_temp_c"`
	ReturnTemp     float64 `json:"return_temp_c"`
	RoomTemp       float64 `json:"room_temp_c"`
}

type Result struct {
	RequiredOutput float64 `json:"required_output_w"`
	MeanWaterTemp  float64 `json:"mean_water_temp_c"`
	Correction     float64 `json:"correction"`
	Notes          string  `json:"notes"`
}

// Calculate sizes a radiator for a design heat load. Non-positive water and
// room temperatures fall back to the UK convention defaults; a mean water
// temperature at or below room temperature cannot emit and is rejected.
func Calculate(in Input) (Result, error) {
	if in.DesignHeatLoad <= 0 {
		return Result{}, ErrDesignLoadNotPositive
	}
	if in.FlowTemp <= 0 {
		in.FlowTemp = DefaultFlowTemp
	}
	if in.ReturnTemp <= 0 {
		in.ReturnTemp = DefaultReturnTemp
	}
	if in.RoomTemp <= 0 {
		in.RoomTemp = DefaultRoomTemp
	}

	meanWaterTemp := (in.FlowTemp + in.ReturnTemp) / 2.0
	tempDiff := meanWaterTemp - in.RoomTemp
	if tempDiff <= 0 {
		return Result{}, ErrInvalidTemperatures
	}

	correction := math.Pow(tempDiff/StandardTempDiff, CorrectionExponent)
	requiredOutput := in.DesignHeatLoad / correction

	return Result{
		RequiredOutput: heatloss.Round(requiredOutput, 2),
		MeanWaterTemp:  heatloss.Round(meanWaterTemp, 2),
		Correction:     heatloss.Round(correction, 3),
		Notes:          "Required catalogue output at the given flow/return temperatures.",
	}, nil
}
