package report_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	auth "Hestia/internal/auth"
	building "Hestia/internal/calc/building"
	heatloss "Hestia/internal/calc/heatloss"
	report "Hestia/internal/calc/report"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

func (f *fakeProjectRepo) LatestCalculation(context.Context, string) (repo.Calculation, error) {
	if f.calc == nil {
		return repo.Calculation{}, repo.ErrNotFound
	}
	return *f.calc, nil
}

type fakeUsers struct {
	repo.Repository

	profile repo.Profile
	err     error
}

func (f *fakeUsers) GetProfileByID(context.Context, int) (repo.Profile, error) {
	if f.err != nil {
		return repo.Profile{}, f.err
	}
	return f.profile, nil
}

func calcParams() *heatloss.Params {
	return &heatloss.Params{
		OutdoorTemp: -3, IndoorTemp: 20,
		WallUValue: 0.3, WindowUValue: 1.4, FloorUValue: 0.25, CeilingUValue: 0.16,
		AirChangeRate: 0.5,
	}
}

func storedCalc() *repo.Calculation {
	return &repo.Calculation{
		ID:        "calc-1",
		ProjectID: "proj-1",
		Result: building.Result{
			Rooms: []building.RoomResult{
				{ID: "r1", Name: "Living Room", Result: heatloss.Result{
					TransmissionLoss: 335.99, VentilationLoss: 192.63,
					TotalHeatLoss: 528.61, DesignHeatLoad: 607.91,
					SafetyFactor: heatloss.SafetyFactor, Method: heatloss.MethodLabel,
				}},
			},
			TotalHeatLoss:   528.61,
			TotalDesignLoad: 607.91,
			SafetyFactor:    heatloss.SafetyFactor,
			Method:          heatloss.MethodLabel,
		},
	}
}

func newReportHandler() (*report.Handler, *fakeProjectRepo, *fakeUsers) {
	repos := &fakeProjectRepo{
		project: repo.Project{ID: "proj-1", Name: "12 Oak Lane", Address: "12 Oak Lane, Bath", Params: calcParams()},
		rooms: []repo.Room{
			{ID: "r1", Name: "Living Room", Room: heatloss.Room{Area: 20, Volume: 50, CeilingHeight: 2.5}},
		},
		calc: storedCalc(),
	}
	users := &fakeUsers{profile: repo.Profile{Login: "surveyor", CompanyName: "Hestia Surveys Ltd"}}
	return &report.Handler{Repo: repos, Users: users, Logger: zap.NewNop()}, repos, users
}

func reportReq(t *testing.T, projectID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID+"/report/pdf", nil)
	req = mux.SetURLVars(req, map[string]string{"id": projectID})
	return req.WithContext(auth.WithUser(req.Context(), 1, "surveyor"))
}

func TestGenerate(t *testing.T) {
	h, _, _ := newReportHandler()

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-1"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "heat-loss-report.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

// 1×1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestGenerate_WithLogo(t *testing.T) {
	dir := t.TempDir()
	png, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), png, 0o644))

	h, _, users := newReportHandler()
	h.UploadDir = dir
	users.profile.LogoURL = "/uploads/logo.png"

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-1"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestGenerate_MissingLogoFileIgnored(t *testing.T) {
	h, _, users := newReportHandler()
	h.UploadDir = t.TempDir()
	users.profile.LogoURL = "/uploads/gone.png"

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerate_ProfileLookupFailureStillRenders(t *testing.T) {
	h, _, users := newReportHandler()
	users.err = errors.New("db down")

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestGenerate_NoCalculation(t *testing.T) {
	h, repos, _ := newReportHandler()
	repos.calc = nil

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no calculation results")
}

func TestGenerate_UnknownProject(t *testing.T) {
	h, _, _ := newReportHandler()

	w := httptest.NewRecorder()
	h.Generate(w, reportReq(t, "proj-9"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerate_Unauthenticated(t *testing.T) {
	h, _, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodPost, "/projects/proj-1/report/pdf", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "proj-1"})

	w := httptest.NewRecorder()
	h.Generate(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
