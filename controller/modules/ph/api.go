package ph

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// LoadAPI registers the REST endpoints. They mirror the console verbs so an
// operator UI and the serial console always see the same state.
func (c *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api/ph").Subrouter()
	sr.HandleFunc("/band", c.getBand).Methods("GET")
	sr.HandleFunc("/band", c.putBand).Methods("PUT")
	sr.HandleFunc("/readings", c.getReadings).Methods("GET")
	sr.HandleFunc("/status", c.getStatus).Methods("GET")
}

func (c *Controller) getBand(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.bands.Get())
}

func (c *Controller) putBand(w http.ResponseWriter, r *http.Request) {
	var band Band
	if err := json.NewDecoder(r.Body).Decode(&band); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := c.bands.Set(band.Low, band.High); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) getReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := c.Readings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

func (c *Controller) getStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.Status())
}
