package heatloss

import (
	"encoding/json"
	"net/http"
)

type Handler struct{}

type CalcRequest struct {
	Room   Room   `json:"room"`
	Params Params `json:"params"`
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	var input CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := Calculate(input.Room, input.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
