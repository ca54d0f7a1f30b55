package export_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	auth "Hestia/internal/auth"
	building "Hestia/internal/calc/building"
	export "Hestia/internal/calc/export"
	heatloss "Hestia/internal/calc/heatloss"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func sampleRooms() []repo.Room {
	return []repo.Room{
		{ID: "r1", Name: "Living Room", Room: heatloss.Room{Area: 20, Volume: 50, CeilingHeight: 2.5}},
		{ID: "r2", Name: "Bedroom", Room: heatloss.Room{Area: 12, Volume: 28.8, CeilingHeight: 2.4}},
	}
}

func sampleResult() building.Result {
	return building.Result{
		Rooms: []building.RoomResult{
			{ID: "r1", Name: "Living Room", Result: heatloss.Result{
				TransmissionLoss: 335.99, VentilationLoss: 192.63,
				TotalHeatLoss: 528.61, DesignHeatLoad: 607.91,
				SafetyFactor: heatloss.SafetyFactor, Method: heatloss.MethodLabel,
			}},
			{ID: "r2", Name: "Bedroom", Result: heatloss.Result{
				TransmissionLoss: 150, VentilationLoss: 50,
				TotalHeatLoss: 200, DesignHeatLoad: 230,
				SafetyFactor: heatloss.SafetyFactor, Method: heatloss.MethodLabel,
			}},
		},
		TotalHeatLoss:   728.61,
		TotalDesignLoad: 837.91,
		SafetyFactor:    heatloss.SafetyFactor,
		Method:          heatloss.MethodLabel,
	}
}

func TestGenerateWorkbook(t *testing.T) {
	data, err := export.GenerateWorkbook(sampleRooms(), sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "Heat Loss", f.GetSheetName(0))
	rows, err := f.GetRows("Heat Loss")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 7)

	assert.Equal(t, []string{"Room", "Area (m²)", "Volume (m³)", "Transmission (W)",
		"Ventilation (W)", "Total (W)", "Design load (W)"}, rows[0])

	assert.Equal(t, []string{"Living Room", "20", "50", "335.99", "192.63", "528.61", "607.91"}, rows[1])
	assert.Equal(t, []string{"Bedroom", "12", "28.8", "150", "50", "200", "230"}, rows[2])

	require.Len(t, rows[3], 7)
	assert.Equal(t, "Building total", rows[3][0])
	assert.Equal(t, "485.99", rows[3][3])
	assert.Equal(t, "242.63", rows[3][4])
	assert.Equal(t, "728.61", rows[3][5])
	assert.Equal(t, "837.91", rows[3][6])

	assert.Equal(t, "Method", rows[5][0])
	assert.Equal(t, heatloss.MethodLabel, rows[5][1])
	assert.Equal(t, "Safety factor", rows[6][0])
	assert.Equal(t, "1.15", rows[6][1])
}

func TestGenerateWorkbook_RoomDeletedSinceCalculation(t *testing.T) {
	data, err := export.GenerateWorkbook(sampleRooms()[:1], sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Heat Loss")
	require.NoError(t, err)
	// Bedroom keeps its result row but area and volume stay blank.
	assert.Equal(t, "Bedroom", rows[2][0])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "150", rows[2][3])
}

type fakeProjectRepo struct {
	repo.ProjectRepository

	project repo.Project
	rooms   []repo.Room
	calc    *repo.Calculation
}

func (f *fakeProjectRepo) GetProject(_ context.Context, userID int, projectID string) (repo.Project, error) {
	if userID != 1 || projectID != f.project.ID {
		return repo.Project{}, repo.ErrNotFound
	}
	return f.project, nil
}

func (f *fakeProjectRepo) ListRooms(context.Context, string) ([]repo.Room, error) {
	return f.rooms, nil
}

func (f *fakeProjectRepo) LatestCalculation(_ context.Context, projectID string) (repo.Calculation, error) {
	if f.calc == nil {
		return repo.Calculation{}, repo.ErrNotFound
	}
	return *f.calc, nil
}

func exportReq(t *testing.T, projectID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/projects/"+projectID+"/report/xlsx", nil)
	req = mux.SetURLVars(req, map[string]string{"id": projectID})
	return req.WithContext(auth.WithUser(req.Context(), 1, "surveyor"))
}

func TestHandler_ExportResults(t *testing.T) {
	repos := &fakeProjectRepo{
		project: repo.Project{ID: "proj-1", Name: "12 Oak Lane"},
		rooms:   sampleRooms(),
		calc:    &repo.Calculation{ID: "calc-1", ProjectID: "proj-1", Result: sampleResult()},
	}
	h := &export.Handler{Repo: repos, Logger: zap.NewNop()}

	w := httptest.NewRecorder()
	h.ExportResults(w, exportReq(t, "proj-1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "heat-loss-results.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Heat Loss")
	require.NoError(t, err)
	assert.Equal(t, "Living Room", rows[1][0])
}

func TestHandler_ExportResults_NoCalculation(t *testing.T) {
	repos := &fakeProjectRepo{project: repo.Project{ID: "proj-1"}}
	h := &export.Handler{Repo: repos, Logger: zap.NewNop()}

	w := httptest.NewRecorder()
	h.ExportResults(w, exportReq(t, "proj-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no calculation results")
}

func TestHandler_ExportResults_UnknownProject(t *testing.T) {
	repos := &fakeProjectRepo{project: repo.Project{ID: "proj-1"}}
	h := &export.Handler{Repo: repos, Logger: zap.NewNop()}

	w := httptest.NewRecorder()
	h.ExportResults(w, exportReq(t, "proj-9"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
