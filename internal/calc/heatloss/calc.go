package heatloss

import (
	"math"
	"time"
)

// Physical constants and validation bounds for the simplified heat-balance
// model. Named values rather than inline literals so tests and reports can
// reference them.
const (
	AirDensity      = 1.2    // kg/m³
	SpecificHeatAir = 1005.0 // J/(kg·K)
	SafetyFactor    = 1.15

	MinOutdoorTemp   = -20.0
	MaxOutdoorTemp   = 15.0
	MinIndoorTemp    = 15.0
	MaxIndoorTemp    = 25.0
	MaxUValue        = 10.0
	MaxAirChangeRate = 10.0

	// Ground-contact floor loss is halved against the reduced temperature
	// gradient below the slab; the ceiling is taken at full ΔT (unheated
	// roof space above).
	groundContactFactor = 0.5

	// The room is modeled as a square footprint with four notional
	// perimeter walls, ExteriorWalls of which face outdoors.
	notionalWalls = 4.0

	DefaultPrecision = 2

	// MethodLabel identifies the loss model on every result.
	MethodLabel = "EN 12831 (simplified)"
)

// Room describes one enclosed space to be heated. TargetTemp is recorded from
// the survey for reference only; the calculation temperature comes from
// Params. DoorCount likewise does not enter the loss formulas.
type Room struct {
	Area          float64 `json:"area_m2"`
	Volume        float64 `json:"volume_m3"`
	CeilingHeight float64 `json:"ceiling_height_m"`
	ExteriorWalls int     `json:"exterior_walls"`
	WindowArea    float64 `json:"window_area_m2"`
	DoorCount     int     `json:"door_count"`
	TargetTemp    float64 `json:"target_temp_c"`
}

// Params carries the thermal inputs shared by every room in one building pass.
type Params struct {
	OutdoorTemp   float64 `json:"outdoor_temp_c"`
	IndoorTemp    float64 `json:"indoor_temp_c"`
	WallUValue    float64 `json:"wall_u_value"`
	WindowUValue  float64 `json:"window_u_value"`
	FloorUValue   float64 `json:"floor_u_value"`
	CeilingUValue float64 `json:"ceiling_u_value"`
	AirChangeRate float64 `json:"air_change_rate_ach"`
}

// Result is the outcome of one Room+Params evaluation. All wattages are
// rounded half-up at the requested precision. CalculationTimeMs is measured
// wall-clock time and is the only field that may differ between identical
// calls.
type Result struct {
	TransmissionLoss  float64 `json:"transmission_loss_w"`
	VentilationLoss   float64 `json:"ventilation_loss_w"`
	TotalHeatLoss     float64 `json:"total_heat_loss_w"`
	DesignHeatLoad    float64 `json:"design_heat_load_w"`
	SafetyFactor      float64 `json:"safety_factor"`
	Method            string  `json:"method"`
	CalculationTimeMs float64 `json:"calculation_time_ms"`
}

func (r Room) Validate() error {
	if r.Area <= 0 {
		return ErrAreaNotPositive
	}
	if r.Volume <= 0 {
		return ErrVolumeNotPositive
	}
	if r.CeilingHeight <= 0 {
		return ErrCeilingHeightNotPositive
	}
	return nil
}

func (p Params) Validate() error {
	if p.OutdoorTemp < MinOutdoorTemp {
		return ErrOutdoorTempTooLow
	}
	if p.OutdoorTemp > MaxOutdoorTemp {
		return ErrOutdoorTempTooHigh
	}
	if p.IndoorTemp < MinIndoorTemp {
		return ErrIndoorTempTooLow
	}
	if p.IndoorTemp > MaxIndoorTemp {
		return ErrIndoorTempTooHigh
	}
	if p.IndoorTemp <= p.OutdoorTemp {
		return ErrTemperatureOrder
	}
	if p.WallUValue <= 0 || p.WallUValue > MaxUValue {
		return ErrWallUValueRange
	}
	if p.WindowUValue <= 0 || p.WindowUValue > MaxUValue {
		return ErrWindowUValueRange
	}
	if p.FloorUValue <= 0 || p.FloorUValue > MaxUValue {
		return ErrFloorUValueRange
	}
	if p.CeilingUValue <= 0 || p.CeilingUValue > MaxUValue {
		return ErrCeilingUValueRange
	}
	if p.AirChangeRate < 0 || p.AirChangeRate > MaxAirChangeRate {
		return ErrAirChangeRateRange
	}
	return nil
}

// Calculate evaluates steady-state heat loss for one room at the default
// precision of two decimal places.
func Calculate(room Room, params Params) (Result, error) {
	return CalculateWithPrecision(room, params, DefaultPrecision)
}

// CalculateWithPrecision validates both inputs, computes transmission and
// ventilation losses, and applies the safety factor. Identical inputs always
// produce identical numbers (CalculationTimeMs aside).
func CalculateWithPrecision(room Room, params Params, precision int) (Result, error) {
	start := time.Now()

	if err := room.Validate(); err != nil {
		return Result{}, err
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	tempDiff := params.IndoorTemp - params.OutdoorTemp
	transmission := transmissionLoss(room, params, tempDiff)
	ventilation := ventilationLoss(room, params, tempDiff)
	total := transmission + ventilation
	design := total * SafetyFactor

	return Result{
		TransmissionLoss:  Round(transmission, precision),
		VentilationLoss:   Round(ventilation, precision),
		TotalHeatLoss:     Round(total, precision),
		DesignHeatLoad:    Round(design, precision),
		SafetyFactor:      SafetyFactor,
		Method:            MethodLabel,
		CalculationTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// transmissionLoss is the fabric loss Q = U·A·ΔT summed over walls, windows,
// floor and ceiling. Wall area comes from the square-footprint perimeter;
// ExteriorWalls/4 scales walls and windows to the exterior-facing share.
// WindowArea larger than the modeled wall area, or ExteriorWalls outside
// 0..4, are not clamped and produce negative or >100% terms.
func transmissionLoss(room Room, p Params, tempDiff float64) float64 {
	floorArea := room.Area
	ceilingArea := room.Area

	perimeter := notionalWalls * math.Sqrt(room.Area)
	totalWallArea := perimeter * room.CeilingHeight
	wallArea := totalWallArea - room.WindowArea

	exteriorFactor := float64(room.ExteriorWalls) / notionalWalls
	effectiveWallArea := wallArea * exteriorFactor
	effectiveWindowArea := room.WindowArea * exteriorFactor

	wallLoss := p.WallUValue * effectiveWallArea * tempDiff
	windowLoss := p.WindowUValue * effectiveWindowArea * tempDiff
	floorLoss := p.FloorUValue * floorArea * tempDiff * groundContactFactor
	ceilingLoss := p.CeilingUValue * ceilingArea * tempDiff

	return wallLoss + windowLoss + floorLoss + ceilingLoss
}

// ventilationLoss is the sensible air-change loss: the hourly exchanged air
// volume converted to a mass flow, times specific heat and ΔT.
func ventilationLoss(room Room, p Params, tempDiff float64) float64 {
	volumeFlow := room.Volume * p.AirChangeRate / 3600.0 // m³/h → m³/s
	massFlow := volumeFlow * AirDensity
	return massFlow * SpecificHeatAir * tempDiff
}

// Round rounds half-up (not banker's) at the given number of decimal places.
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Floor(v*scale+0.5) / scale
}
