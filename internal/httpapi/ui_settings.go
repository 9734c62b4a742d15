package httpapi

import "net/http"

type uiSettingsResponse struct {
	Models        []string `json:"models"`
	DefaultModel  string   `json:"default_model"`
	MemoryMin     int      `json:"memory_min"`
	MemoryMax     int      `json:"memory_max"`
	MemoryDefault int      `json:"memory_default"`
	SamplePrompt  string   `json:"sample_prompt"`
}

func (s *Server) handleUISettings(w http.ResponseWriter, _ *http.Request) {
	resp := uiSettingsResponse{
		Models:        []string{},
		MemoryMin:     1,
		MemoryMax:     s.cfg.MemoryMax,
		MemoryDefault: s.cfg.MemoryDefault,
		SamplePrompt:  s.samplePrompt(),
	}
	if s.chat != nil {
		limits := s.chat.Limits()
		resp.Models = append(resp.Models, limits.Models...)
		resp.DefaultModel = limits.Models.Default()
		resp.MemoryMax = limits.MemoryMax
		resp.MemoryDefault = limits.MemoryDefault
	}
	respondJSON(w, http.StatusOK, resp)
}
