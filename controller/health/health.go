// Package health reports host vitals so an operator can tell a hung daemon
// from a starved host.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

type report struct {
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	MemUsedPct    float64 `json:"mem_used_pct"`
	HostUptimeSec uint64  `json:"host_uptime_sec"`
}

// LoadAPI registers the health endpoint.
func LoadAPI(r *mux.Router) {
	r.HandleFunc("/api/health", get).Methods("GET")
}

func get(w http.ResponseWriter, r *http.Request) {
	var rep report
	if avg, err := load.Avg(); err == nil {
		rep.Load1 = avg.Load1
		rep.Load5 = avg.Load5
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		rep.MemUsedPct = vm.UsedPercent
	}
	if up, err := host.Uptime(); err == nil {
		rep.HostUptimeSec = up
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}
