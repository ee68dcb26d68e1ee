package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tileview/internal/frame_loop"
	"tileview/internal/sector"
)

// Frames is the read side of the frame loop.
type Frames interface {
	Latest() *frame_loop.Snapshot
	Subscribe() (<-chan *frame_loop.Snapshot, func())
}

// Camera is the write side of the input layer.
type Camera interface {
	Snapshot() sector.Camera
	Set(cam sector.Camera) sector.Camera
	Pan(dx, dy float64) sector.Camera
	ZoomAt(factor float64, at sector.Point) sector.Camera
}

type Options struct {
	AllowedOrigin string
	Metrics       http.Handler
}

type Handlers struct {
	opts   Options
	logger *zap.Logger
	frames Frames
	camera Camera
}

func New(opts Options, logger *zap.Logger, frames Frames, camera Camera) *Handlers {
	return &Handlers{
		opts:   opts,
		logger: logger,
		frames: frames,
		camera: camera,
	}
}

// Router mounts every endpoint behind the logging and CORS middleware.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.CORSMiddleware)
	r.Use(h.RequestLoggingMiddleware)

	r.Get("/healthz", h.HandleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.HandleState)
		r.Get("/frame", h.HandleFrame)
		r.Get("/camera", h.HandleGetCamera)
		r.Put("/camera", h.HandleSetCamera)
		r.Post("/camera/pan", h.HandlePan)
		r.Post("/camera/zoom", h.HandleZoom)
	})
	r.Get("/ws/frames", h.HandleFrameStream)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}
	return r
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// stateResponse is the snapshot without its draw list.
type stateResponse struct {
	*frame_loop.Snapshot
	Draws []frame_loop.Draw `json:"draws,omitempty"`
}

func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	s := h.frames.Latest()
	if s == nil {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, stateResponse{Snapshot: s})
}

func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	s := h.frames.Latest()
	if s == nil {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"frame":    s.Frame,
		"lod":      s.LOD,
		"rendered": s.Rendered,
		"draws":    s.Draws,
	})
}

func (h *Handlers) HandleGetCamera(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.camera.Snapshot())
}

func (h *Handlers) HandleSetCamera(w http.ResponseWriter, r *http.Request) {
	var cam sector.Camera
	if !decodeJSON(w, r, &cam) {
		return
	}
	if cam.Zoom <= 0 {
		http.Error(w, "zoom must be positive", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.camera.Set(cam))
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (h *Handlers) HandlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, h.camera.Pan(req.DX, req.DY))
}

type zoomRequest struct {
	Factor  float64 `json:"factor"`
	ScreenX float64 `json:"screen_x"`
	ScreenY float64 `json:"screen_y"`
}

func (h *Handlers) HandleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Factor <= 0 {
		http.Error(w, "factor must be positive", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.camera.ZoomAt(req.Factor, sector.Point{X: req.ScreenX, Y: req.ScreenY}))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
