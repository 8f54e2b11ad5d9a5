package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/models"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
	"github.com/google/uuid"
)

// linkCodeHandler exchanges a WhatsApp-issued onboarding code for a
// phone-vendor binding. The linked phone is returned masked.
func (s *Server) linkCodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Code     string `json:"code"`
		VendorID string `json:"vendor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Code == "" || req.VendorID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("code and vendor_id are required"))
		return
	}

	vendor, err := s.st.GetVendor(req.VendorID)
	if err != nil {
		slog.Error("Server.linkCodeHandler: vendor lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	if vendor == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("vendor not found"))
		return
	}

	lc, err := s.st.ConsumeLinkCode(req.Code, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrLinkCodeNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("link code not found or expired"))
			return
		}
		slog.Error("Server.linkCodeHandler: consume link code failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}

	link := models.VendorLink{Phone: lc.Phone, VendorID: req.VendorID, LinkedAt: time.Now()}
	if err := s.st.PutVendorLink(link); err != nil {
		switch {
		case errors.Is(err, models.ErrPhoneAlreadyLinked), errors.Is(err, models.ErrVendorAlreadyLinked):
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		default:
			slog.Error("Server.linkCodeHandler: put vendor link failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		}
		return
	}

	slog.Info("Server.linkCodeHandler: phone linked", "vendor_id", req.VendorID, "phone", util.MaskPhone(lc.Phone))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Phone linked", map[string]string{
		"phone": util.MaskPhone(lc.Phone),
	}))
}

func (s *Server) createVendorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		BusinessName string `json:"business_name"`
		Timezone     string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.BusinessName == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("business_name is required"))
		return
	}

	v := models.Vendor{
		ID:           uuid.NewString(),
		BusinessName: req.BusinessName,
		Timezone:     req.Timezone,
		CreatedAt:    time.Now(),
	}
	if err := s.st.CreateVendor(v); err != nil {
		slog.Error("Server.createVendorHandler: create vendor failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(v))
}

func (s *Server) getVendorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	vendor, err := s.st.GetVendor(id)
	if err != nil {
		slog.Error("Server.getVendorHandler: vendor lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	if vendor == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("vendor not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(vendor))
}

// listSessionsHandler returns a vendor's sessions for the dashboard.
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("vendor_id query parameter is required"))
		return
	}
	sessions, err := s.st.ListVendorSessions(vendorID)
	if err != nil {
		slog.Error("Server.listSessionsHandler: list failed", "vendor_id", vendorID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

// overrideStatusHandler is the admin escape hatch: it sets a session's
// status directly, bypassing the engine's transition guards.
func (s *Server) overrideStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Status models.SessionStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !models.IsValidSessionStatus(req.Status) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid status"))
		return
	}

	id := r.PathValue("id")
	session, err := s.st.GetSession(id)
	if err != nil {
		slog.Error("Server.overrideStatusHandler: session lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	if session == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("session not found"))
		return
	}

	now := time.Now()
	session.Status = req.Status
	switch req.Status {
	case models.StatusCompleted:
		session.CompletedAt = &now
	case models.StatusCancelled:
		session.CancelledAt = &now
	}
	if err := s.st.UpdateSession(*session); err != nil {
		slog.Error("Server.overrideStatusHandler: update failed", "session_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	slog.Warn("Server.overrideStatusHandler: status overridden", "session_id", id, "status", req.Status)
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

// ridersHandler lists a vendor's riders (GET) or registers a new one (POST).
func (s *Server) ridersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRidersHandler(w, r)
	case http.MethodPost:
		s.createRiderHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listRidersHandler(w http.ResponseWriter, r *http.Request) {
	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("vendor_id query parameter is required"))
		return
	}
	riders, err := s.st.ListVendorRiders(vendorID)
	if err != nil {
		slog.Error("Server.listRidersHandler: list failed", "vendor_id", vendorID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(riders))
}

func (s *Server) createRiderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req struct {
		VendorID string `json:"vendor_id"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.VendorID == "" || req.Name == "" || req.Phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("vendor_id, name, and phone are required"))
		return
	}
	if !util.IsValidMobile(req.Phone) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("phone is not a valid mobile number"))
		return
	}

	vendor, err := s.st.GetVendor(req.VendorID)
	if err != nil {
		slog.Error("Server.createRiderHandler: vendor lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	if vendor == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("vendor not found"))
		return
	}

	rider := models.Rider{
		ID:        util.GenerateRiderID(),
		VendorID:  req.VendorID,
		Name:      req.Name,
		Phone:     util.CanonicalizePhone(req.Phone),
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := s.st.CreateRider(rider); err != nil {
		slog.Error("Server.createRiderHandler: create rider failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(rider))
}
