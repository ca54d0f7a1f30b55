package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	auth "Hestia/internal/auth"
	cache "Hestia/internal/cache"
	heatloss "Hestia/internal/calc/heatloss"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const MaxUploadSize = 10 << 20 // 10 MB

// Handler ingests surveyor room sheets (xlsx) into a project. Expected
// columns: name, area m², volume m³, ceiling height m, exterior walls,
// window area m², doors, target temp °C. Volume left blank is derived as
// area × ceiling height. Cache may be nil.
type Handler struct {
	Repo   repo.ProjectRepository
	Cache  *cache.ResultCache
	Logger *zap.Logger
}

type RoomImportResult struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Rooms    []repo.Room `json:"rooms"`
}

func (h *Handler) ImportRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	if _, err := h.Repo.GetProject(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to load project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File required")
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		writeError(w, http.StatusBadRequest, "Empty sheet")
		return
	}

	var parsed []repo.Room
	skipped := 0
	for i := 1; i < len(rows); i++ {
		room, err := parseRoomRow(rows[i])
		if err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, room)
	}
	if len(parsed) == 0 {
		writeError(w, http.StatusBadRequest, "sheet contains no usable rooms")
		return
	}

	stored, err := h.Repo.AddRooms(r.Context(), projectID, parsed)
	if err != nil {
		h.Logger.Error("failed to store imported rooms",
			zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(r.Context(), projectID); err != nil {
			h.Logger.Warn("failed to invalidate cached results",
				zap.Error(err), zap.String("project_id", projectID))
		}
	}

	h.Logger.Info("room sheet imported",
		zap.String("project_id", projectID),
		zap.Int("imported", len(stored)),
		zap.Int("skipped", skipped),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(RoomImportResult{Imported: len(stored), Skipped: skipped, Rooms: stored})
}

func parseRoomRow(row []string) (repo.Room, error) {
	// expected: name, area_m2, volume_m3(optional), ceiling_height_m,
	// exterior_walls, window_area_m2, door_count, target_temp_c
	if len(row) < 4 {
		return repo.Room{}, fmt.Errorf("bad row")
	}
	name := strings.TrimSpace(row[0])
	if name == "" {
		return repo.Room{}, fmt.Errorf("missing name")
	}
	area, err := toFloat(row[1])
	if err != nil {
		return repo.Room{}, err
	}
	height, err := toFloat(row[3])
	if err != nil {
		return repo.Room{}, err
	}
	volume := area * height
	if row[2] != "" {
		volume, err = toFloat(row[2])
		if err != nil {
			return repo.Room{}, err
		}
	}
	walls := 0
	if len(row) > 4 && row[4] != "" {
		walls, err = toInt(row[4])
		if err != nil {
			return repo.Room{}, err
		}
	}
	windowArea := 0.0
	if len(row) > 5 && row[5] != "" {
		windowArea, _ = toFloat(row[5])
	}
	doors := 0
	if len(row) > 6 && row[6] != "" {
		doors, _ = toInt(row[6])
	}
	targetTemp := 0.0
	if len(row) > 7 && row[7] != "" {
		targetTemp, _ = toFloat(row[7])
	}

	room := repo.Room{
		Name: name,
		Room: heatloss.Room{
			Area:          area,
			Volume:        volume,
			CeilingHeight: height,
			ExteriorWalls: walls,
			WindowArea:    windowArea,
			DoorCount:     doors,
			TargetTemp:    targetTemp,
		},
	}
	if err := room.Validate(); err != nil {
		return repo.Room{}, err
	}
	return room, nil
}

func toFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%f", &v)
	return v, err
}

func toInt(s string) (int, error) {
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
