package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
	"github.com/kirillkom/card-catalog/internal/infrastructure/export/xlsx"
)

const (
	uploadFileField     = "cardImage"
	uploadUsernameField = "username"
	sniffLen            = 512
	multipartMemory     = 8 << 20
)

type Options struct {
	MaxUploadBytes    int64
	UploadMaxInFlight int
	UploadQueueWait   time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int

	// Metrics wraps every route and serves /metrics when MetricsHandler is set.
	Metrics        func(http.Handler) http.Handler
	MetricsHandler http.Handler
}

type Router struct {
	uploads ports.CardUploader
	catalog ports.CatalogService
	prices  ports.PriceRefresher
	opts    Options
}

func NewRouter(
	uploads ports.CardUploader,
	catalog ports.CatalogService,
	prices ports.PriceRefresher,
	opts Options,
) *Router {
	return &Router{
		uploads: uploads,
		catalog: catalog,
		prices:  prices,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)
	if rt.opts.Metrics != nil {
		r.Use(rt.opts.Metrics)
	}

	r.Get("/healthz", rt.healthz)
	if rt.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
		})

		r.With(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.opts.UploadMaxInFlight, rt.opts.UploadQueueWait)
		}).Post("/cards/upload", rt.uploadCard)

		r.Get("/cards/{cardID}", rt.getCard)
		r.Delete("/cards/{cardID}", rt.removeCard)

		r.Get("/users/{username}/cards", rt.listCards)
		r.Get("/users/{username}/cards/export", rt.exportCards)
		r.Post("/users/{username}/prices/refresh", rt.refreshPrices)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadCard(w http.ResponseWriter, r *http.Request) {
	if rt.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload form", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(uploadFileField)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("multipart field %q is required", uploadFileField)))
		return
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	head = head[:n]
	if contentType := http.DetectContentType(head); !strings.HasPrefix(contentType, "image/") {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("unsupported content type %q", contentType)))
		return
	}

	card, err := rt.uploads.Upload(r.Context(), domain.UploadRequest{
		Username: r.FormValue(uploadUsernameField),
		Filename: header.Filename,
		Body:     io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"card": card})
}

func (rt *Router) getCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := rt.catalog.GetCard(r.Context(), cardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (rt *Router) removeCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	remaining, err := rt.catalog.RemoveCard(r.Context(), cardID, all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card_id": cardID, "remaining": remaining})
}

func (rt *Router) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := rt.catalog.ListCards(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (rt *Router) exportCards(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	cards, err := rt.catalog.ListCards(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteCatalog(&buf, cards); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", username+"-catalog.xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) refreshPrices(w http.ResponseWriter, r *http.Request) {
	count, err := rt.prices.EnrichAllForUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "update started", "count": count})
}

func cardIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "cardID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse card id", fmt.Errorf("invalid card id %q", raw))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
