package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AdminHandler struct {
	statsService    service.StatsService
	deletionService service.DeletionService
	identityService service.IdentityService
	validate        *validator.Validate
	logger          zerolog.Logger
}

func NewAdminHandler(statsService service.StatsService, deletionService service.DeletionService, identityService service.IdentityService, v *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		statsService:    statsService,
		deletionService: deletionService,
		identityService: identityService,
		validate:        v,
		logger:          logger.With().Str("handler", "AdminHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 admin routes
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/stats", authMw(http.HandlerFunc(h.getSystemStats)))
	mux.Handle("/admin/users/attributes", authMw(http.HandlerFunc(h.populateAttributes)))
	mux.Handle("/admin/users/", authMw(http.HandlerFunc(h.handleUser)))
}

func (h *AdminHandler) getSystemStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: claims not found in context", http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.SystemStats(r.Context(), claims)
	if err != nil {
		h.writeServiceError(w, err, "Failed to aggregate system stats")
		return
	}

	resp := dto.SystemStatsResponseDTO{
		TotalUsers:       stats.TotalUsers,
		CollectionCounts: stats.CollectionCounts,
		ScanFailures:     stats.ScanFailures,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUser routes /admin/users/{id}/stats and /admin/users/{id}.
func (h *AdminHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(rest, "/stats"):
		h.getUserStats(w, r, strings.TrimSuffix(rest, "/stats"))
	case r.Method == http.MethodDelete && !strings.Contains(rest, "/"):
		h.deleteUser(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *AdminHandler) getUserStats(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: claims not found in context", http.StatusUnauthorized)
		return
	}

	record, err := h.statsService.UserStats(r.Context(), claims, userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to aggregate user stats")
		return
	}

	resp := dto.UserStatsResponseDTO{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		Counts:      record.Counts,
		Unavailable: record.Unavailable,
	}
	if record.Usage != nil {
		resp.Usage = usageSummaryToDTO(record.Usage)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: claims not found in context", http.StatusUnauthorized)
		return
	}

	result, err := h.deletionService.DeleteAllUserData(r.Context(), claims, userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to delete user data")
		return
	}

	resp := dto.DeletionResultDTO{
		UserID:           result.UserID,
		PerCollection:    make(map[string]dto.CollectionOutcomeDTO, len(result.PerCollection)),
		OverallSucceeded: result.OverallSucceeded,
	}
	for collection, outcome := range result.PerCollection {
		resp.PerCollection[collection] = collectionOutcomeToDTO(outcome)
	}
	if result.StorageObjects != nil {
		storage := collectionOutcomeToDTO(*result.StorageObjects)
		resp.StorageObjects = &storage
	}

	// Partial failure still returns the structured result; the status code
	// distinguishes it without hiding the per-collection detail.
	status := http.StatusOK
	if !result.OverallSucceeded {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func (h *AdminHandler) populateAttributes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: claims not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.PopulateAttributesRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	results, err := h.identityService.PopulateMissingAttributes(r.Context(), claims, req.UserIDs)
	if err != nil {
		h.writeServiceError(w, err, "Failed to populate identity attributes")
		return
	}
	writeJSON(w, http.StatusOK, dto.PopulateAttributesResponseDTO{Results: results})
}

func (h *AdminHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, service.ErrUnauthorized) {
		http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
		return
	}
	h.logger.Error().Err(err).Msg(msg)
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func usageSummaryToDTO(usage *model.UsageSummary) *dto.UsageSummaryDTO {
	out := &dto.UsageSummaryDTO{
		TotalTokens:      usage.TotalTokens,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		RequestCount:     usage.RequestCount,
		EstimatedCost:    usage.EstimatedCost,
		Approximate:      usage.Approximate,
	}
	if len(usage.ByModel) > 0 {
		out.ByModel = make(map[string]dto.ModelTokensDTO, len(usage.ByModel))
		for modelID, mt := range usage.ByModel {
			out.ByModel[modelID] = dto.ModelTokensDTO{
				PromptTokens:     mt.PromptTokens,
				CompletionTokens: mt.CompletionTokens,
			}
		}
	}
	return out
}

func collectionOutcomeToDTO(outcome model.CollectionOutcome) dto.CollectionOutcomeDTO {
	return dto.CollectionOutcomeDTO{
		Attempted: outcome.Attempted,
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
		Errors:    outcome.Errors,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
