package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/auth"
	"github.com/lumoraenergy/lumora/internal/calclog"
	"github.com/lumoraenergy/lumora/internal/leads"
	"github.com/lumoraenergy/lumora/internal/media"
	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/internal/projects"
	"github.com/lumoraenergy/lumora/internal/ratelimit"
	"github.com/lumoraenergy/lumora/internal/store"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/format"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LeadService captures and administers quote requests.
type LeadService interface {
	Submit(ctx context.Context, sub leads.Submission) (*models.Lead, error)
	List(ctx context.Context, limit, offset int) ([]models.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// ProjectService manages showcase projects.
type ProjectService interface {
	Create(ctx context.Context, in projects.Input) (*models.Project, error)
	Update(ctx context.Context, id uuid.UUID, in projects.Input) (*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, limit, offset int) ([]models.Project, error)
	Count(ctx context.Context) (int, error)
}

// Authenticator signs users up and in and guards admin routes.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, fullName string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (string, *models.User, error)
	RequireRole(roles ...string) func(http.Handler) http.Handler
}

// ImageStore stores project images.
type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*media.Object, error)
	Remove(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// CalculationRecorder receives a summary of every calculator run.
type CalculationRecorder interface {
	Record(entry *calclog.Entry)
}

// Counter counts stored rows.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Dependencies wires the handler to its collaborators. Only Logger is
// required; routes whose collaborator is nil answer 503.
type Dependencies struct {
	Logger        *zap.Logger
	Version       string
	MaxUploadSize int64
	Leads         LeadService
	Projects      ProjectService
	Auth          Authenticator
	Images        ImageStore
	Recorder      CalculationRecorder
	Calculations  Counter
	Limiter       ratelimit.Limiter
	Health        func(ctx context.Context) error
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	deps          Dependencies
}

// NewHandler constructs the HTTP handler that serves the calculator, lead
// capture, project showcase and admin APIs.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := deps.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(deps.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, deps: deps}

	mux := http.NewServeMux()

	// Public API
	mux.HandleFunc("POST /api/calculator", h.handleCalculate)
	mux.HandleFunc("GET /api/calculator/options", h.handleCalculatorOptions)
	mux.Handle("POST /api/leads", h.throttle("leads", http.HandlerFunc(h.handleSubmitLead)))
	mux.HandleFunc("GET /api/projects", h.handleListProjects)
	mux.Handle("POST /api/auth/signup", h.throttle("signup", http.HandlerFunc(h.handleSignUp)))
	mux.Handle("POST /api/auth/login", h.throttle("login", http.HandlerFunc(h.handleLogin)))
	mux.Handle("GET /api/auth/me", h.authenticated(http.HandlerFunc(h.handleMe)))
	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Admin API
	mux.Handle("GET /api/admin/dashboard", h.admin(h.handleDashboard))
	mux.Handle("GET /api/admin/leads", h.admin(h.handleListLeads))
	mux.Handle("DELETE /api/admin/leads/{id}", h.admin(h.handleDeleteLead))
	mux.Handle("GET /api/admin/projects", h.admin(h.handleListProjects))
	mux.Handle("POST /api/admin/projects", h.admin(h.handleCreateProject))
	mux.Handle("PUT /api/admin/projects/{id}", h.admin(h.handleUpdateProject))
	mux.Handle("DELETE /api/admin/projects/{id}", h.admin(h.handleDeleteProject))
	mux.Handle("POST /api/admin/uploads", h.admin(h.handleUpload))

	return mux
}

func (h *handler) throttle(scope string, next http.Handler) http.Handler {
	if h.deps.Limiter == nil {
		return next
	}
	return ratelimit.Middleware(h.deps.Limiter, scope, h.logger)(next)
}

func (h *handler) authenticated(next http.Handler) http.Handler {
	if h.deps.Auth == nil {
		return http.HandlerFunc(h.unavailable("authentication"))
	}
	return h.deps.Auth.RequireRole()(next)
}

func (h *handler) admin(fn http.HandlerFunc) http.Handler {
	if h.deps.Auth == nil {
		return http.HandlerFunc(h.unavailable("authentication"))
	}
	return h.deps.Auth.RequireRole(models.RoleAdmin)(fn)
}

func (h *handler) unavailable(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, feature+" is not configured", "server.unavailable")
	}
}

type calculatorRequest struct {
	City        string  `json:"city"`
	MonthlyBill float64 `json:"monthlyBill"`
	RoofType    string  `json:"roofType"`
}

type calculatorResponse struct {
	projection.Projection
	Formatted formattedProjection `json:"formatted"`
}

type formattedProjection struct {
	SystemSize        string `json:"systemSize"`
	InstallationCost  string `json:"installationCost"`
	Subsidy           string `json:"subsidy"`
	FinalCost         string `json:"finalCost"`
	MonthlySavings    string `json:"monthlySavings"`
	AnnualSavings     string `json:"annualSavings"`
	NewMonthlyBill    string `json:"newMonthlyBill"`
	Payback           string `json:"payback"`
	NetSavings25Years string `json:"netSavings25Years"`
}

func formatProjection(p projection.Projection) formattedProjection {
	return formattedProjection{
		SystemSize:        format.Kilowatts(p.SystemSizeKW),
		InstallationCost:  format.Rupees(p.InstallationCost),
		Subsidy:           format.Rupees(p.Subsidy),
		FinalCost:         format.Rupees(p.FinalCost),
		MonthlySavings:    format.Rupees(p.MonthlySavings),
		AnnualSavings:     format.Rupees(p.AnnualSavings),
		NewMonthlyBill:    format.Rupees(p.NewMonthlyBill),
		Payback:           format.Years(p.PaybackYears),
		NetSavings25Years: format.Rupees(p.NetSavings25Years),
	}
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	start := time.Now()

	var req calculatorRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	in, err := projection.ParseInput(req.City, req.MonthlyBill, req.RoofType)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	result, err := projection.Compute(in)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	response := calculatorResponse{Projection: result, Formatted: formatProjection(result)}

	if h.deps.Recorder != nil {
		h.deps.Recorder.Record(calclog.FromSummary(result.Summary()))
	}

	h.logger.Info("projection computed",
		zap.String("op", op),
		zap.String("city", string(result.City)),
		zap.Float64("systemSizeKW", result.SystemSizeKW),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, response)
}

type billRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (h *handler) handleCalculatorOptions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities":        projection.Cities(),
		"roofTypes":     projection.RoofTypes(),
		"propertyTypes": leads.PropertyTypes(),
		"monthlyBill":   billRange{Min: projection.MinMonthlyBill, Max: projection.MaxMonthlyBill},
	})
}

func (h *handler) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSubmitLead"
	if h.deps.Leads == nil {
		h.unavailable("lead capture")(w, r)
		return
	}

	var sub leads.Submission
	if !h.decodeJSON(w, r, &sub, op) {
		return
	}

	lead, err := h.deps.Leads.Submit(r.Context(), sub)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, lead)
}

func (h *handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListProjects"
	if h.deps.Projects == nil {
		h.unavailable("project showcase")(w, r)
		return
	}

	limit, offset, ok := h.paging(w, r, op)
	if !ok {
		return
	}
	list, err := h.deps.Projects.List(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

func (h *handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSignUp"
	if h.deps.Auth == nil {
		h.unavailable("authentication")(w, r)
		return
	}

	var creds credentials
	if !h.decodeJSON(w, r, &creds, op) {
		return
	}
	user, err := h.deps.Auth.SignUp(r.Context(), creds.Email, creds.Password, creds.FullName)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLogin"
	if h.deps.Auth == nil {
		h.unavailable("authentication")(w, r)
		return
	}

	var creds credentials
	if !h.decodeJSON(w, r, &creds, op) {
		return
	}
	token, user, err := h.deps.Auth.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.respondErrorWithOp(w, http.StatusUnauthorized, "missing session", "server.handleMe")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"id":    claims.Subject,
		"email": claims.Email,
		"role":  claims.Role,
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("op", "server.handleHealth"), zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dashboard struct {
	Projects     int  `json:"projects"`
	Leads        int  `json:"leads"`
	Calculations *int `json:"calculations,omitempty"`
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDashboard"
	if h.deps.Leads == nil || h.deps.Projects == nil {
		h.unavailable("storage")(w, r)
		return
	}

	var (
		d            dashboard
		calculations int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.deps.Projects.Count(ctx)
		d.Projects = n
		return err
	})
	g.Go(func() error {
		n, err := h.deps.Leads.Count(ctx)
		d.Leads = n
		return err
	})
	if h.deps.Calculations != nil {
		g.Go(func() error {
			n, err := h.deps.Calculations.Count(ctx)
			calculations = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.respondErr(w, err, op)
		return
	}
	if h.deps.Calculations != nil {
		d.Calculations = &calculations
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *handler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListLeads"
	if h.deps.Leads == nil {
		h.unavailable("lead capture")(w, r)
		return
	}

	limit, offset, ok := h.paging(w, r, op)
	if !ok {
		return
	}
	list, err := h.deps.Leads.List(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteLead"
	if h.deps.Leads == nil {
		h.unavailable("lead capture")(w, r)
		return
	}

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Leads.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateProject"
	if h.deps.Projects == nil {
		h.unavailable("project showcase")(w, r)
		return
	}

	var in projects.Input
	if !h.decodeJSON(w, r, &in, op) {
		return
	}
	p, err := h.deps.Projects.Create(r.Context(), in)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

func (h *handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateProject"
	if h.deps.Projects == nil {
		h.unavailable("project showcase")(w, r)
		return
	}

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	var in projects.Input
	if !h.decodeJSON(w, r, &in, op) {
		return
	}
	p, err := h.deps.Projects.Update(r.Context(), id, in)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteProject"
	if h.deps.Projects == nil {
		h.unavailable("project showcase")(w, r)
		return
	}

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	p, err := h.deps.Projects.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	if err := h.deps.Projects.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.removeImages(r.Context(), p, op)
	w.WriteHeader(http.StatusNoContent)
}

// removeImages deletes uploaded images of a removed project. Failures are logged.
func (h *handler) removeImages(ctx context.Context, p *models.Project, op string) {
	if h.deps.Images == nil {
		return
	}
	urls := []string{p.ImageURL}
	if p.ClientImage != nil {
		urls = append(urls, *p.ClientImage)
	}
	for _, url := range urls {
		key, ok := h.deps.Images.KeyFromURL(url)
		if !ok {
			continue
		}
		if err := h.deps.Images.Remove(ctx, key); err != nil {
			h.logger.Warn("failed to remove project image",
				zap.String("op", op),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpload"
	if h.deps.Images == nil {
		h.unavailable("image storage")(w, r)
		return
	}

	// Allow for multipart framing on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+64*1024)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing image file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	obj, err := h.deps.Images.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, obj)
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.DefaultMaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge, "request body too large", op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) paging(w http.ResponseWriter, r *http.Request, op string) (int, int, bool) {
	query := r.URL.Query()
	limit, offset := 0, 0
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw), op)
			return 0, 0, false
		}
		*dst = v
	}
	return limit, offset, true
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request, op string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "invalid id", op)
		return uuid.Nil, false
	}
	return id, true
}

// respondErr maps domain errors onto status codes.
func (h *handler) respondErr(w http.ResponseWriter, err error, op string) {
	var leadErr *leads.ValidationError
	if errors.As(err, &leadErr) {
		h.logger.Info("lead rejected", zap.String("op", op), zap.Int("fields", len(leadErr.Fields)))
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "invalid lead",
			"fields": leadErr.Fields,
		})
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case projection.IsValidationError(err),
		errors.Is(err, projects.ErrInvalid),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, media.ErrEmpty):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrEmailTaken):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, media.ErrTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, media.ErrNotImage):
		status, msg = http.StatusUnsupportedMediaType, err.Error()
	default:
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err),
		)
		h.writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	h.respondErrorWithOp(w, status, msg, op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
