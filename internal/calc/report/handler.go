package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	auth "Hestia/internal/auth"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// Handler renders the project heat-loss report as a PDF: surveyor branding,
// design conditions, a per-room loss table and the building totals. It renders
// from the stored calculation; run the calculation first.
type Handler struct {
	Repo      repo.ProjectRepository
	Users     repo.Repository
	UploadDir string
	Logger    *zap.Logger
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	project, err := h.Repo.GetProject(r.Context(), userID, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to load project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	calc, err := h.Repo.LatestCalculation(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no calculation results for this project")
			return
		}
		h.Logger.Error("failed to load calculation", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	rooms, err := h.Repo.ListRooms(r.Context(), projectID)
	if err != nil {
		h.Logger.Error("failed to load rooms", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Branding is best-effort; a report without a logo is still a report.
	var profile repo.Profile
	if h.Users != nil {
		profile, err = h.Users.GetProfileByID(r.Context(), userID)
		if err != nil {
			h.Logger.Warn("failed to load profile for report", zap.Error(err), zap.Int("user_id", userID))
			profile = repo.Profile{}
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if logo := h.logoPath(profile.LogoURL); logo != "" {
		pdf.ImageOptions(logo, 158, 10, 35, 0, false,
			gofpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Heat Loss Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Project: %s", project.Name)))
	pdf.Ln(6)
	if project.Address != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Address: %s", project.Address)))
		pdf.Ln(6)
	}
	if author := authorLine(profile); author != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Prepared by: %s", author)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	if project.Params != nil {
		p := project.Params
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Design conditions")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 5, tr(fmt.Sprintf("Outdoor %.1f °C, indoor %.1f °C", p.OutdoorTemp, p.IndoorTemp)))
		pdf.Ln(5)
		pdf.Cell(0, 5, tr(fmt.Sprintf("U-values W/(m²·K): walls %.2f, windows %.2f, floor %.2f, ceiling %.2f",
			p.WallUValue, p.WindowUValue, p.FloorUValue, p.CeilingUValue)))
		pdf.Ln(5)
		pdf.Cell(0, 5, fmt.Sprintf("Air change rate: %.1f ACH", p.AirChangeRate))
		pdf.Ln(10)
	}

	headers := []string{"Room", "Area m²", "Transmission W", "Ventilation W", "Total W", "Design W"}
	widths := []float64{50, 20, 30, 30, 30, 30}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 240, 250)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	dims := make(map[string]repo.Room, len(rooms))
	for _, room := range rooms {
		dims[room.ID] = room
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, rr := range calc.Result.Rooms {
		name := rr.Name
		if name == "" {
			name = rr.ID
		}
		area := ""
		if room, ok := dims[rr.ID]; ok {
			area = fmt.Sprintf("%.1f", room.Area)
		}
		pdf.CellFormat(widths[0], 6, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, area, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.2f", rr.Result.TransmissionLoss), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", rr.Result.VentilationLoss), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.2f", rr.Result.TotalHeatLoss), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, fmt.Sprintf("%.2f", rr.Result.DesignHeatLoad), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 7, "Building total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(widths[4], 7, fmt.Sprintf("%.2f", calc.Result.TotalHeatLoss), "1", 0, "R", true, 0, "")
	pdf.CellFormat(widths[5], 7, fmt.Sprintf("%.2f", calc.Result.TotalDesignLoad), "1", 0, "R", true, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf(
		"Method: %s. Design loads include a ×%.2f safety margin on the calculated losses.",
		calc.Result.Method, calc.Result.SafetyFactor)), "", "L", false)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"heat-loss-report.pdf\"")
	if err := pdf.Output(w); err != nil {
		h.Logger.Error("failed to render report", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Report generation error")
		return
	}
}

// logoPath resolves the stored logo URL back to the uploads directory and
// confirms the file is still there.
func (h *Handler) logoPath(logoURL string) string {
	if logoURL == "" || h.UploadDir == "" {
		return ""
	}
	name := strings.TrimPrefix(logoURL, "/uploads/")
	if name == "" || name == logoURL {
		return ""
	}
	path := filepath.Join(h.UploadDir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func authorLine(p repo.Profile) string {
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Login
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
