package http

import (
	"net/http"
	"os"

	"github.com/shirou/gopsutil/process"
)

type healthResponse struct {
	Status     string  `json:"status"`
	Pid        int     `json:"pid"`
	RAMBytes   uint64  `json:"ram_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
}

// handleHealthz is GET /api/healthz. Process stats are best-effort; the
// endpoint reports ok as long as the server answers.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Pid: os.Getpid()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			resp.RAMBytes = mem.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
