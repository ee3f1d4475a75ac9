package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxdroplab/voxdrop/internal/api"
	"github.com/voxdroplab/voxdrop/internal/audio"
	"github.com/voxdroplab/voxdrop/internal/config"
	"github.com/voxdroplab/voxdrop/internal/dsp"
	"github.com/voxdroplab/voxdrop/internal/post"
)

// Server is the local control server for the recorder: it exposes the
// capture lifecycle, effect selection and posting over HTTP so a UI can
// drive the pipeline.
type Server struct {
	cfg         *config.Config
	port        string
	capture     *audio.Capture
	coordinator *post.Coordinator
	client      *api.Client
}

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	State     string  `json:"state"`
	Recording bool    `json:"recording"`
	Level     int     `json:"level"`
	Elapsed   float64 `json:"elapsed_seconds"`
	Effect    string  `json:"effect"`
	LastError string  `json:"last_error,omitempty"`
}

// StopResponse is the JSON body returned when a recording finalizes.
type StopResponse struct {
	Success  bool    `json:"success"`
	Duration float64 `json:"duration_seconds"`
	Waveform []int   `json:"waveform"`
}

// GenericResponse is the shared success/error envelope.
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New builds the control server and the pipeline behind it.
func New(cfg *config.Config) (*Server, error) {
	client, err := api.NewClient(&cfg.API)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	capture := audio.NewCapture(cfg, nil, nil)
	coordinator := post.NewCoordinator(capture, client, client.Cache().Invalidate)

	return &Server{
		cfg:         cfg,
		port:        cfg.Server.Port,
		capture:     capture,
		coordinator: coordinator,
		client:      client,
	}, nil
}

// Start registers the handlers and serves until the listener fails.
func (s *Server) Start() error {
	http.HandleFunc("/status", s.handleStatus)
	http.HandleFunc("/record", s.handleRecord)
	http.HandleFunc("/stop", s.handleStop)
	http.HandleFunc("/discard", s.handleDiscard)
	http.HandleFunc("/effect", s.handleEffect)
	http.HandleFunc("/post", s.handlePost)
	http.HandleFunc("/waveform", s.handleWaveform)
	http.Handle("/metrics", promhttp.Handler())

	localIP := getLocalIP()
	slog.Info("Starting VoxDrop control server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	return http.ListenAndServe(":"+s.port, nil)
}

// handleStatus returns the coordinator state and live meter readings.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := StatusResponse{
		State:     string(s.coordinator.State()),
		Recording: s.capture.Active(),
		Level:     s.capture.Level(),
		Elapsed:   s.capture.Elapsed(),
		Effect:    s.coordinator.Effect().String(),
		LastError: s.coordinator.LastError(),
	}
	if resp.LastError == "" {
		resp.LastError = s.capture.LastError()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRecord starts a capture session.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.coordinator.StartRecording(); err != nil {
		s.sendError(w, http.StatusConflict, fmt.Sprintf("Failed to start recording: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{Success: true, Message: "Recording started"})
}

// handleStop finalizes the capture and returns the preview waveform.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clip, err := s.coordinator.StopRecording()
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to stop recording: %v", err))
		return
	}
	if clip == nil {
		s.sendError(w, http.StatusConflict, "No recording in progress")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StopResponse{
		Success:  true,
		Duration: clip.Duration,
		Waveform: clip.Waveform(64),
	})
}

// handleDiscard drops the previewed clip.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.coordinator.Discard()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{Success: true, Message: "Clip discarded"})
}

// handleEffect selects a named effect preset for the next upload.
func (s *Server) handleEffect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	name := r.FormValue("name")
	effect, err := dsp.Preset(name)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.coordinator.SelectEffect(effect); err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{Success: true, Message: fmt.Sprintf("Effect set to %s", effect)})
}

// handlePost runs the upload pipeline on the previewed clip. The optional
// channel and parent form values target a channel feed or a reply thread.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	s.coordinator.SetChannel(r.FormValue("channel"))
	s.coordinator.SetParent(r.FormValue("parent"))

	created, err := s.coordinator.Upload(r.Context())
	if err != nil {
		s.sendError(w, http.StatusBadGateway, fmt.Sprintf("Upload failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Clip posted",
		"post_id": created.ID,
	})
}

// handleWaveform returns the interim preview of the audio captured so far.
func (s *Server) handleWaveform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	buckets := 64
	if v := r.URL.Query().Get("buckets"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1024 {
			buckets = n
		}
	}

	var waveform []int
	if s.capture.Active() {
		waveform = s.capture.Waveform(buckets)
	} else if clip := s.coordinator.Clip(); clip != nil {
		waveform = clip.Waveform(buckets)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"waveform": waveform,
	})
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	slog.Debug("Request failed", "status", code, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(GenericResponse{Success: false, Error: message})
}

// getLocalIP returns the local IP address for network access
func getLocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
