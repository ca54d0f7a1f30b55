package heatloss

import "errors"

var (
	ErrAreaNotPositive          = errors.New("Room area must be greater than 0")
	ErrVolumeNotPositive        = errors.New("Room volume must be greater than 0")
	ErrCeilingHeightNotPositive = errors.New("Ceiling height must be greater than 0")
	ErrOutdoorTempTooLow        = errors.New("Outdoor temperature must be at least -20°C")
	ErrOutdoorTempTooHigh       = errors.New("Outdoor temperature must not exceed 15°C")
	ErrIndoorTempTooLow         = errors.New("Indoor temperature must be at least 15°C")
	ErrIndoorTempTooHigh        = errors.New("Indoor temperature must not exceed 25°C")
	ErrTemperatureOrder         = errors.New("Indoor temperature must be greater than outdoor temperature")
	ErrWallUValueRange          = errors.New("Wall U-value must be greater than 0 and at most 10 W/m²K")
	ErrWindowUValueRange        = errors.New("Window U-value must be greater than 0 and at most 10 W/m²K")
	ErrFloorUValueRange         = errors.New("Floor U-value must be greater than 0 and at most 10 W/m²K")
	ErrCeilingUValueRange       = errors.New("Ceiling U-value must be greater than 0 and at most 10 W/m²K")
	ErrAirChangeRateRange       = errors.New("Air change rate must be between 0 and 10 ACH")
)
