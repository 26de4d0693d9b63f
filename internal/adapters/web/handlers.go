package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"temple-vouchers/internal/app"
	"temple-vouchers/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler holds the ApplicationService, the chi router, and the request validator.
type Handler struct {
	svc      app.ApplicationService
	router   chi.Router
	validate *validator.Validate
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{svc: svc, validate: v}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// ── Voucher types ─────────────────────────────────────────────────────────
	r.Get("/api/vouchers", h.listVouchers)
	r.Get("/api/vouchers/{type}/reference", h.referenceData)
	r.Get("/api/vouchers/{type}/schema", h.payloadSchema)
	r.Post("/api/vouchers/{type}/sessions", h.openSession)

	// ── Editing sessions ──────────────────────────────────────────────────────
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.closeSession)
		r.Put("/header", h.updateHeader)

		r.Post("/{ledger}/rows", h.addRow)
		r.Delete("/{ledger}/rows/{row}", h.removeRow)
		r.Put("/{ledger}/rows/{row}/account", h.setAccount)
		r.Put("/{ledger}/rows/{row}/amount", h.setAmount)
		r.Put("/{ledger}/rows/{row}/details", h.setDetails)
		r.Put("/{ledger}/rows/{row}/stock", h.updateStockLine)

		r.Post("/auto-balance", h.autoBalance)
		r.Post("/validate", h.validateSession)
		r.Post("/submit", h.submit)
	})

	h.router = r
	return h
}

// ServeHTTP dispatches to the chi router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, core.Vouchers())
}

// voucherType extracts the {type} URL parameter.
func voucherType(r *http.Request) string {
	return chi.URLParam(r, "type")
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func ledgerName(r *http.Request) app.LedgerName {
	return app.LedgerName(chi.URLParam(r, "ledger"))
}

// rowID parses the {row} URL parameter, writing a 400 on failure.
func rowID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || id <= 0 {
		writeError(w, r, "row must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes and validates the request body into v. It writes the
// error response itself and returns false on failure: 413 when the body
// exceeds the size limit, 400 for anything else.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	return true
}

// respond writes a session view or maps err.
func respond[T any](w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, v)
}
