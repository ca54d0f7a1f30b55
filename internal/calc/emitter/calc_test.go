package emitter

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_StandardRatingCondition(t *testing.T) {
	res, err := Calculate(Input{
		DesignHeatLoad: 1200,
		FlowTemp:       75,
		ReturnTemp:     65,
		RoomTemp:       20,
	})
	require.NoError(t, err)

	// At the 75/65/20 reference the correction is exactly 1.
	assert.Equal(t, 70.0, res.MeanWaterTemp)
	assert.Equal(t, 1.0, res.Correction)
	assert.Equal(t, 1200.0, res.RequiredOutput)
}

func TestCalculate_DefaultsSubstituted(t *testing.T) {
	res, err := Calculate(Input{DesignHeatLoad: 800})
	require.NoError(t, err)

	assert.Equal(t, 70.0, res.MeanWaterTemp)
	assert.Equal(t, 1.0, res.Correction)
	assert.Equal(t, 800.0, res.RequiredOutput)
}

func TestCalculate_LowTemperatureSystem(t *testing.T) {
	// Heat-pump style 45/35 flow/return: ΔT = 20 K, well under the 50 K
	// rating, so the radiator must be oversized.
	res, err := Calculate(Input{
		DesignHeatLoad: 1000,
		FlowTemp:       45,
		ReturnTemp:     35,
		RoomTemp:       20,
	})
	require.NoError(t, err)

	wantCorrection := math.Pow(20.0/50.0, CorrectionExponent)
	assert.InDelta(t, wantCorrection, res.Correction, 0.001)
	assert.InDelta(t, 1000.0/wantCorrection, res.RequiredOutput, 0.01)
	assert.Greater(t, res.RequiredOutput, 1000.0)
}

func TestCalculate_HighTemperatureSystemShrinksEmitter(t *testing.T) {
	res, err := Calculate(Input{
		DesignHeatLoad: 1000,
		FlowTemp:       90,
		ReturnTemp:     70,
		RoomTemp:       20,
	})
	require.NoError(t, err)
	assert.Less(t, res.RequiredOutput, 1000.0)
}

func TestCalculate_Rejections(t *testing.T) {
	_, err := Calculate(Input{DesignHeatLoad: 0})
	assert.ErrorIs(t, err, ErrDesignLoadNotPositive)

	_, err = Calculate(Input{DesignHeatLoad: -10})
	assert.ErrorIs(t, err, ErrDesignLoadNotPositive)

	// Mean water 25 °C into a 25 °C room has no driving temperature.
	_, err = Calculate(Input{DesignHeatLoad: 500, FlowTemp: 30, ReturnTemp: 20, RoomTemp: 25})
	assert.ErrorIs(t, err, ErrInvalidTemperatures)

	_, err = Calculate(Input{DesignHeatLoad: 500, FlowTemp: 25, ReturnTemp: 15, RoomTemp: 24})
	assert.ErrorIs(t, err, ErrInvalidTemperatures)
}

func TestHandler_Calc(t *testing.T) {
	h := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "/tools/emitter/calc",
		strings.NewReader(`{"design_heat_load_w": 607.91}`))
	rr := httptest.NewRecorder()
	h.Calc(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"required_output_w":607.91`)
}

func TestHandler_Calc_BadPayload(t *testing.T) {
	h := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "/tools/emitter/calc", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()
	h.Calc(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Calc_InvalidTemperatures(t *testing.T) {
	h := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "/tools/emitter/calc",
		strings.NewReader(`{"design_heat_load_w": 500, "flow_temp_c": 30, "return_temp_c": 20, "room_temp_c": 25}`))
	rr := httptest.NewRecorder()
	h.Calc(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid temperature configuration")
}
