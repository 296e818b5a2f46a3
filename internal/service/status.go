package service

import (
	"time"
)

const Version = "2.0"

type StatusConfig struct {
	LLMProvider string
	APIKey      string
	Agents      int
	Offline     bool
}

// Status - то, что отдают /health и /test
type Status struct {
	Status           string
	Message          string
	Version          string
	Timestamp        time.Time
	AgentsReady      bool
	AgentsConfigured int
	APIKeyConfigured bool
	APIKeyLength     int
	LLMProvider      string
	Offline          bool
	Uptime           time.Duration
}

type StatusService struct {
	cfg     StatusConfig
	started time.Time
	now     func() time.Time
}

func NewStatusService(cfg StatusConfig) *StatusService {
	return &StatusService{
		cfg:     cfg,
		started: time.Now(),
		now:     time.Now,
	}
}

func (s *StatusService) Health() Status {
	now := s.now()
	keyOK := s.cfg.APIKey != ""
	ready := s.cfg.Agents > 0 && (keyOK || s.cfg.Offline)

	st := Status{
		Status:           "healthy",
		Message:          "Financial Analyst API is running",
		Version:          Version,
		Timestamp:        now,
		AgentsReady:      ready,
		AgentsConfigured: s.cfg.Agents,
		APIKeyConfigured: keyOK,
		APIKeyLength:     len(s.cfg.APIKey),
		LLMProvider:      s.cfg.LLMProvider,
		Offline:          s.cfg.Offline,
		Uptime:           now.Sub(s.started),
	}
	if !ready {
		st.Status = "degraded"
		st.Message = "API key not configured, analysis endpoints are unavailable"
	}
	return st
}
