package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gridplane/gridplane/internal/samples"
	"github.com/gridplane/gridplane/internal/typeid"
)

const maxUploadSize = 500 << 20 // 500MB

type Handler struct {
	renderer Renderer
	encoder  Encoder
}

func NewHandler(renderer Renderer, encoder Encoder) *Handler {
	return &Handler{renderer: renderer, encoder: encoder}
}

// renderRequest asks for a sample to be rendered server side.
type renderRequest struct {
	Sample  string  `json:"sample"`
	Format  string  `json:"format"`
	FPS     int     `json:"fps"`
	Seconds float64 `json:"seconds"`
	Name    string  `json:"name"`
}

// ExportVideo handles POST /export/video. A JSON body renders a sample on the
// server; a multipart body carries frames rendered by the client as
// frame_NNNN file fields.
func (h *Handler) ExportVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	exportID := typeid.NewExportID()
	tempDir, err := os.MkdirTemp("", "gridplane-"+exportID+"-*")
	if err != nil {
		slog.Error("create temp dir", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	var req renderRequest
	var frameCount int
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, frameCount, err = readUploadedFrames(r, tempDir)
	} else {
		req, frameCount, err = h.renderSample(r, tempDir)
	}
	if err != nil {
		var status statusError
		if errors.As(err, &status) {
			http.Error(w, status.msg, status.code)
			return
		}
		slog.Error("prepare frames", "export", exportID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("export started", "export", exportID, "format", req.Format, "frames", frameCount, "fps", req.FPS)

	outputFile, err := h.encoder.Encode(r.Context(), tempDir, req.FPS, req.Format)
	if err != nil {
		slog.Error("ffmpeg failed", "export", exportID, "error", err)
		http.Error(w, fmt.Sprintf("encoding failed: %v", err), http.StatusInternalServerError)
		return
	}

	outFile, err := os.Open(outputFile)
	if err != nil {
		slog.Error("open output file", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer outFile.Close()

	stat, err := outFile.Stat()
	if err != nil {
		slog.Error("stat output file", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", Formats[req.Format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, req.Name, req.Format))
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	io.Copy(w, outFile)

	slog.Info("export complete", "export", exportID, "format", req.Format, "size", stat.Size())
}

type statusError struct {
	code int
	msg  string
}

func (e statusError) Error() string { return e.msg }

func badRequest(msg string) error { return statusError{code: http.StatusBadRequest, msg: msg} }

// normalise checks the format and fills in defaults.
func (req *renderRequest) normalise() error {
	if _, ok := Formats[req.Format]; !ok {
		return badRequest("invalid format: must be mp4, gif, or webm")
	}
	if req.FPS <= 0 || req.FPS > 120 {
		req.FPS = 24
	}
	if req.Name == "" {
		req.Name = req.Sample
	}
	if req.Name == "" {
		req.Name = "animation"
	}
	req.Name = sanitize(req.Name)
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func (h *Handler) renderSample(r *http.Request, dir string) (renderRequest, int, error) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, 0, badRequest("invalid request body")
	}
	if _, err := samples.Lookup(req.Sample); err != nil {
		return req, 0, badRequest(err.Error())
	}
	if err := req.normalise(); err != nil {
		return req, 0, err
	}

	n, err := h.renderer.Render(r.Context(), dir, Job{Sample: req.Sample, FPS: req.FPS, Seconds: req.Seconds})
	if errors.Is(err, ErrTooManyFrames) {
		return req, n, badRequest("animation too long; set seconds")
	}
	return req, n, err
}

func readUploadedFrames(r *http.Request, dir string) (renderRequest, int, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return renderRequest{}, 0, badRequest("request too large")
	}
	defer r.MultipartForm.RemoveAll()

	fps, _ := strconv.Atoi(r.FormValue("fps"))
	req := renderRequest{Format: r.FormValue("format"), FPS: fps, Name: r.FormValue("name")}
	if err := req.normalise(); err != nil {
		return req, 0, err
	}

	// The frame index comes from the field name, so map order does not matter.
	frameCount := 0
	for key, files := range r.MultipartForm.File {
		if !strings.HasPrefix(key, "frame_") || len(files) == 0 {
			continue
		}

		frameIdx, err := strconv.Atoi(strings.TrimPrefix(key, "frame_"))
		if err != nil || frameIdx < 0 {
			return req, 0, badRequest("invalid frame key: " + key)
		}

		f, err := files[0].Open()
		if err != nil {
			return req, 0, badRequest("failed to read frame")
		}
		out, err := os.Create(filepath.Join(dir, fmt.Sprintf(framePattern, frameIdx)))
		if err != nil {
			f.Close()
			return req, 0, fmt.Errorf("create frame file: %w", err)
		}
		_, err = io.Copy(out, f)
		f.Close()
		out.Close()
		if err != nil {
			return req, 0, fmt.Errorf("write frame file: %w", err)
		}
		frameCount++
	}

	if frameCount == 0 {
		return req, 0, badRequest("no frames uploaded")
	}
	return req, frameCount, nil
}
