package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/daftar-ledger/daftar/internal/platform/httpx"
)

// Handler exposes the facade as a JSON API for the presentation layer.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches the ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/suppliers/{id}/statement", h.supplierStatement)

	r.Get("/transactions", h.listTransactions)
	r.Post("/transactions", h.createTransaction)
	r.Delete("/transactions/{id}", h.deleteTransaction)

	r.Get("/users", h.listUsers)
	r.Post("/users", h.createUser)
	r.Delete("/users/{id}", h.deleteUser)

	r.Get("/settings", h.getSettings)
	r.Put("/settings", h.saveSettings)
	r.Post("/admin/verify", h.verifyAdminPassword)

	r.Get("/summaries", h.listSummaries)

	r.Post("/sync", h.sync)
	r.Put("/connectivity", h.setConnectivity)
	r.Post("/reset", h.reset)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.FetchSuppliers(r.Context())
	if err != nil {
		h.respondErr(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, suppliers)
}

type createSupplierRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.respondErr(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.service.FetchTransactions(r.Context())
	if err != nil {
		h.respondErr(w, "list transactions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, transactions)
}

type createTransactionRequest struct {
	SupplierID      int64           `json:"supplier_id" validate:"required"`
	Type            string          `json:"type" validate:"required,oneof=invoice payment return"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	CreatedBy       string          `json:"created_by"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	tx, err := h.service.CreateTransaction(r.Context(), CreateTransactionInput{
		SupplierID:      req.SupplierID,
		Type:            TransactionType(req.Type),
		Amount:          req.Amount,
		Date:            req.Date,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		h.respondErr(w, "create transaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		h.respondErr(w, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.FetchUsers(r.Context())
	if err != nil {
		h.respondErr(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), req.Name, req.Code)
	if err != nil {
		h.respondErr(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.respondErr(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// settingsResponse never carries the password hash off the server.
type settingsResponse struct {
	CompanyName string `json:"company_name"`
	LogoURL     string `json:"logo_url,omitempty"`
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.service.FetchSettings(r.Context())
	httpx.JSON(w, http.StatusOK, settingsResponse{
		CompanyName: settings.CompanyName,
		LogoURL:     settings.LogoURL,
	})
}

type saveSettingsRequest struct {
	CompanyName   string `json:"company_name" validate:"required"`
	LogoURL       string `json:"logo_url"`
	AdminPassword string `json:"admin_password"`
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	settings := AppSettings{CompanyName: req.CompanyName, LogoURL: req.LogoURL}
	if err := h.service.SaveSettings(r.Context(), settings, req.AdminPassword); err != nil {
		h.respondErr(w, "save settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsResponse{
		CompanyName: settings.CompanyName,
		LogoURL:     settings.LogoURL,
	})
}

type verifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) verifyAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	valid := h.service.VerifyAdminPassword(r.Context(), req.Password)
	httpx.JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) listSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.SupplierSummaries(r.Context())
	if err != nil {
		h.respondErr(w, "list summaries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) supplierStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from := q.Get("from")
	to := q.Get("to")
	if to == "" {
		to = time.Now().UTC().Format(DateLayout)
	}
	if from == "" {
		from = "0000-01-01" // everything folds into the period
	}
	filter := StatementFilter{Reference: q.Get("q")}
	if raw := q.Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			typ := TransactionType(strings.TrimSpace(part))
			if typ.Valid() {
				filter.Types = append(filter.Types, typ)
			}
		}
	}
	statement, err := h.service.SupplierStatement(r.Context(), id, from, to, filter)
	if err != nil {
		h.respondErr(w, "build statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	synced, err := h.service.SyncOfflineChanges(r.Context())
	if err != nil {
		h.logger.Warn("sync pass incomplete", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"synced": synced})
}

type connectivityRequest struct {
	Online bool `json:"online"`
}

func (h *Handler) setConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	h.service.SetConnectivity(req.Online)
	httpx.JSON(w, http.StatusOK, map[string]bool{"online": h.service.Online()})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.service.VerifyAdminPassword(r.Context(), req.Password) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.DeleteAllData(r.Context()); err != nil {
		h.respondErr(w, "reset data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrSupplierRequired),
		errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrProvisionalSupplier):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrOfflineReset), errors.Is(err, ErrRemoteUnconfigured):
		httpx.Problem(w, http.StatusConflict, "Unavailable Offline", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Remote Store Error", err.Error())
	}
}
