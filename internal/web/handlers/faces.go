package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/faceid"
)

// FacesHandler exposes the identification engine over HTTP.
type FacesHandler struct {
	service *faceid.Service
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(service *faceid.Service) *FacesHandler {
	return &FacesHandler{service: service}
}

func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidMultipart)
		return false
	}
	return true
}

func identityFromForm(w http.ResponseWriter, r *http.Request) (database.Identity, bool) {
	identity := database.NewIdentity(r.FormValue("user_id"))
	if identity.IsZero() {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return identity, true
}

// identifyOptions overlays request form values on the service defaults.
func (h *FacesHandler) identifyOptions(p *formParser) faceid.IdentifyOptions {
	opts := h.service.IdentifyOptions()
	opts.TopK = p.intValue("top_k", opts.TopK)
	opts.Threshold = p.floatValue("threshold", opts.Threshold)
	opts.Mode = p.modeValue("mode", opts.Mode)
	opts.FilterMatches = p.boolValue("filter_matches", opts.FilterMatches)
	opts.AutoEnroll = p.boolValue("auto_enroll", opts.AutoEnroll)
	opts.AutoEnrollMinSimilarity = p.floatValue("auto_enroll_min_similarity", opts.AutoEnrollMinSimilarity)
	return opts
}

// Enroll handles POST /api/v1/faces/enroll.
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	identity, ok := identityFromForm(w, r)
	if !ok {
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Enroll(r.Context(), identity, image)
	if err != nil {
		respondServiceError(w, "enroll", err)
		return
	}
	if result.OK {
		log.Printf("Enrolled %s (tier=%s)", sanitizeForLog(identity.String()), result.Storage.Tier)
	}
	respondJSON(w, http.StatusOK, result)
}

// EnrollBatch handles POST /api/v1/faces/enroll/batch.
func (h *FacesHandler) EnrollBatch(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	identity, ok := identityFromForm(w, r)
	if !ok {
		return
	}
	images, err := readFormFiles(r, "files")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(images) > constants.MaxBatchImages {
		respondError(w, http.StatusBadRequest, "too many files")
		return
	}

	result, err := h.service.EnrollBatch(r.Context(), identity, images, nil)
	if err != nil {
		respondServiceError(w, "enroll batch", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Identify handles POST /api/v1/faces/identify.
func (h *FacesHandler) Identify(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &formParser{r: r}
	opts := h.identifyOptions(p)
	if p.err != nil {
		respondError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	result, err := h.service.Identify(r.Context(), image, opts)
	if err != nil {
		respondServiceError(w, "identify", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// IdentifyMulti handles POST /api/v1/faces/identify/multi.
func (h *FacesHandler) IdentifyMulti(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &formParser{r: r}
	opts := h.service.MultiIdentifyOptions()
	opts.IdentifyOptions = h.identifyOptions(p)
	opts.MinProbability = p.floatValue("min_prob", opts.MinProbability)
	opts.ExclusiveAssignment = p.boolValue("exclusive_assignment", opts.ExclusiveAssignment)
	if p.err != nil {
		respondError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	result, err := h.service.IdentifyMulti(r.Context(), image, opts)
	if err != nil {
		respondServiceError(w, "identify multi", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// AutoEnroll handles POST /api/v1/faces/auto-enroll.
func (h *FacesHandler) AutoEnroll(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &formParser{r: r}
	opts := h.service.AutoEnrollOptions()
	opts.MinSimilarity = p.floatValue("min_similarity", opts.MinSimilarity)
	opts.MinProbability = p.floatValue("min_prob", opts.MinProbability)
	if p.err != nil {
		respondError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	result, err := h.service.AutoEnrollIfConfident(r.Context(), image, opts)
	if err != nil {
		respondServiceError(w, "auto-enroll", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Detect handles POST /api/v1/faces/detect.
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Detect(r.Context(), image)
	if err != nil {
		respondServiceError(w, "detect", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/v1/faces/stats.
func (h *FacesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondServiceError(w, "stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
