package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillswap/session-scheduling/internal/booking"
)

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		learnerID, err := uuid.Parse(req.LearnerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner_id must be a valid UUID")
			return
		}
		skillID, err := uuid.Parse(req.SkillID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_skill_id", "skill_id must be a valid UUID")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		b, err := svc.CreateBooking(r.Context(), booking.SessionRequest{
			LearnerID:       learnerID,
			SkillID:         skillID,
			ProviderID:      providerID,
			Date:            req.Date,
			Time:            req.Time,
			DurationMinutes: int(math.Round(req.DurationHours * 60)),
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)

		var (
			bookings []booking.Booking
			err      error
		)

		switch {
		case r.URL.Query().Get("learner_id") != "":
			learnerID, parseErr := uuid.Parse(r.URL.Query().Get("learner_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner_id must be a valid UUID")
				return
			}
			bookings, err = svc.ListBookingsByLearner(r.Context(), learnerID, limit, offset)
		case r.URL.Query().Get("provider_id") != "":
			providerID, parseErr := uuid.Parse(r.URL.Query().Get("provider_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
				return
			}
			bookings, err = svc.ListBookingsByProvider(r.Context(), providerID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "learner_id or provider_id query parameter is required")
			return
		}

		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			resp = append(resp, toBookingResponse(&bookings[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func acceptBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req ProviderActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		b, err := svc.AcceptBooking(r.Context(), id, providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func declineBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req ProviderActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		b, err := svc.DeclineBooking(r.Context(), id, providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		actorID, ok := parseActorBody(w, r)
		if !ok {
			return
		}

		b, err := svc.CancelBooking(r.Context(), id, actorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func requestRescheduleHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		b, err := svc.RequestReschedule(r.Context(), id, actorID, req.NewDate, req.NewTime)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func acceptRescheduleHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		actorID, ok := parseActorBody(w, r)
		if !ok {
			return
		}

		b, err := svc.AcceptReschedule(r.Context(), id, actorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func declineRescheduleHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		actorID, ok := parseActorBody(w, r)
		if !ok {
			return
		}

		b, err := svc.DeclineReschedule(r.Context(), id, actorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func getAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		p, err := svc.GetAvailability(r.Context(), providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(p))
	}
}

func createAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req AvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		p, err := svc.CreateAvailability(r.Context(), providerID, toProfileInput(req))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAvailabilityResponse(p))
	}
}

func updateAvailabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req AvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		p, err := svc.UpdateAvailability(r.Context(), providerID, booking.ProfileUpdate{
			Weekly:            req.WeeklySchedule,
			Timezone:          req.Timezone,
			BufferMinutes:     req.BufferMinutes,
			MinAdvanceHours:   req.MinAdvanceHours,
			MaxAdvanceDays:    req.MaxAdvanceDays,
			AutoAccept:        req.AutoAccept,
			BlockedDates:      req.BlockedDates,
			MaxSessionsPerDay: req.MaxSessionsPerDay,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(p))
	}
}

// Helpers

func toProfileInput(req AvailabilityRequest) booking.ProfileInput {
	var in booking.ProfileInput
	if req.WeeklySchedule != nil {
		in.Weekly = *req.WeeklySchedule
	}
	if req.Timezone != nil {
		in.Timezone = *req.Timezone
	}
	if req.BufferMinutes != nil {
		in.BufferMinutes = *req.BufferMinutes
	}
	if req.MinAdvanceHours != nil {
		in.MinAdvanceHours = *req.MinAdvanceHours
	}
	if req.MaxAdvanceDays != nil {
		in.MaxAdvanceDays = *req.MaxAdvanceDays
	}
	if req.AutoAccept != nil {
		in.AutoAccept = *req.AutoAccept
	}
	if req.BlockedDates != nil {
		in.BlockedDates = *req.BlockedDates
	}
	if req.MaxSessionsPerDay != nil {
		in.MaxSessionsPerDay = *req.MaxSessionsPerDay
	}
	return in
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseActorBody(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req ActorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return uuid.Nil, false
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
		return uuid.Nil, false
	}
	return actorID, true
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// handleServiceError maps the three domain error classes to HTTP:
// validation failures are 400, state conflicts and lost races are 409,
// unknown ids are 404. The machine-readable reason rides in the error
// code field.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *booking.ValidationError
		conflictErr   *booking.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Reason, validationErr.Message)
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Guard, conflictErr.Message)
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "availability_profile_not_found", err.Error())
	case errors.Is(err, booking.ErrProfileExists):
		writeError(w, http.StatusConflict, "availability_profile_exists", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
