package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ZacxDev/reel-splitter/internal/composer"
	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/internal/frame"
	"github.com/ZacxDev/reel-splitter/internal/logging"
	"github.com/ZacxDev/reel-splitter/internal/model"
	"github.com/ZacxDev/reel-splitter/internal/pipeline"
	"github.com/ZacxDev/reel-splitter/internal/processor"
	"github.com/ZacxDev/reel-splitter/internal/store"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/layouts", listLayoutsHandler())

	r.Post("/videos", submitVideoHandler(cfg))
	r.Get("/videos/{id}", getVideoHandler(cfg))
	r.Get("/videos/{id}/segments", listSegmentsHandler(cfg))
	r.Post("/videos/{id}/retry", retryVideoHandler(cfg))

	r.Post("/render", renderHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func listLayoutsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layouts := frame.All()
		resp := LayoutsResponse{Layouts: make([]LayoutResponse, len(layouts))}
		for i, l := range layouts {
			resp.Layouts[i] = LayoutToResponse(l)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func submitVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitVideoRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		v, err := cfg.Orchestrator.Submit(r.Context(), req.SourceURL)
		if err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}
		if err := cfg.Runner.Start(v.ID); err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitVideoResponse{VideoID: v.ID, Status: string(v.Status)})
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := cfg.Store.GetVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, v)
	}
}

func listSegmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cfg.Store.GetVideo(r.Context(), id); err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}
		segs, err := cfg.Store.ListSegments(r.Context(), id)
		if err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}
		if segs == nil {
			segs = []*model.Segment{}
		}
		WriteJSON(w, http.StatusOK, SegmentsResponse{VideoID: id, Segments: segs})
	}
}

func retryVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Runner.Retry(id); err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, SubmitVideoResponse{VideoID: id, Status: string(types.StatusUploaded)})
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		layoutID := types.LayoutID(req.Layout)
		if !frame.Valid(layoutID) {
			WriteError(w, http.StatusBadRequest, "unknown layout: "+req.Layout, "UNKNOWN_LAYOUT")
			return
		}

		source, name, err := resolveRenderSource(r, cfg.Store, req)
		if err != nil {
			writeStoreError(w, cfg.Logger, err)
			return
		}

		dir := "adhoc"
		if req.VideoID != "" {
			dir = req.VideoID
		}
		if req.OutputName != "" {
			name = req.OutputName
		}
		format := cfg.OutputFormat
		if format == "" {
			format = "mp4"
		}
		output := filepath.Join(cfg.OutputDir, dir, "reels",
			ffmpeg.EnsureExtension(processor.SanitizeFilename(name)+"_"+req.Layout, "."+format))

		var trim *ffmpeg.Trim
		if req.StartTime != nil || req.Duration != nil {
			trim = &ffmpeg.Trim{}
			if req.StartTime != nil {
				trim.Start = *req.StartTime
			}
			if req.Duration != nil {
				trim.Duration = *req.Duration
			}
		}

		out, err := cfg.Composer.Compose(r.Context(), composer.Request{
			Source:   source,
			Output:   output,
			Layout:   layoutID,
			Captions: req.Captions,
			Options:  composer.Options{Shadow: req.Shadow, ColorOverlay: req.ColorOverlay},
			Trim:     trim,
		})
		if err != nil {
			var ce *composer.CompositionError
			switch {
			case errors.As(err, &ce):
				cfg.Logger.WithError(err).WithField("layout", req.Layout).Error("render failed")
				resp := ErrorResponse{Error: ce.Error(), Code: "COMPOSITION_FAILED"}
				if ce.Diagnostics != "" {
					resp.Details = []string{logging.Truncate(ce.Diagnostics, 2048)}
				}
				WriteJSON(w, http.StatusInternalServerError, resp)
			case errors.Is(err, frame.ErrUnknownLayout):
				WriteError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_LAYOUT")
			default:
				cfg.Logger.WithError(err).WithField("layout", req.Layout).Error("render failed")
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		WriteJSON(w, http.StatusOK, RenderResponse{OutputPath: out, Layout: req.Layout})
	}
}

// resolveRenderSource picks the file a render reads from: an explicit path,
// one segment of a video, or the video's downloaded source.
func resolveRenderSource(r *http.Request, st store.Store, req RenderRequest) (path, name string, err error) {
	if req.VideoID == "" {
		return req.SourcePath, filepath.Base(req.SourcePath), nil
	}

	v, err := st.GetVideo(r.Context(), req.VideoID)
	if err != nil {
		return "", "", err
	}
	name = v.Title
	if name == "" {
		name = v.ID
	}

	if req.SegmentIndex == nil {
		if v.LocalPath == "" {
			return "", "", errors.Wrapf(store.ErrStatusConflict, "video %s has not been downloaded", v.ID)
		}
		return v.LocalPath, name, nil
	}

	segs, err := st.ListSegments(r.Context(), v.ID)
	if err != nil {
		return "", "", err
	}
	for _, s := range segs {
		if s.Index == *req.SegmentIndex {
			return s.FilePath, name, nil
		}
	}
	return "", "", errors.Wrapf(store.ErrNotFound, "segment %d of video %s", *req.SegmentIndex, v.ID)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "VALIDATION_FAILED",
			Details: formatValidationErrors(err),
		})
		return false
	}
	return true
}

func formatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := "field '" + fe.Field() + "' failed on the '" + fe.Tag() + "' tag"
		if fe.Param() != "" {
			msg += " (value: " + fe.Param() + ")"
		}
		out = append(out, msg)
	}
	return out
}

func writeStoreError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, store.ErrStatusConflict), errors.Is(err, pipeline.ErrAlreadyRunning):
		WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
	default:
		log.WithError(err).Error("request failed")
		WriteError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}
