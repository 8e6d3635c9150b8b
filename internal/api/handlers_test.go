package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/session-scheduling/internal/booking"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req booking.SessionRequest) (*booking.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) AcceptBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) DeclineBooking(ctx context.Context, bookingID, providerID uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) RequestReschedule(ctx context.Context, bookingID, actorID uuid.UUID, newDate, newTime string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, actorID, newDate, newTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) AcceptReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) DeclineReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookingsByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]booking.Booking, error) {
	args := m.Called(ctx, learnerID, limit, offset)
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListBookingsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]booking.Booking, error) {
	args := m.Called(ctx, providerID, limit, offset)
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetAvailability(ctx context.Context, providerID uuid.UUID) (*booking.AvailabilityProfile, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.AvailabilityProfile), args.Error(1)
}

func (m *MockBookingService) CreateAvailability(ctx context.Context, providerID uuid.UUID, in booking.ProfileInput) (*booking.AvailabilityProfile, error) {
	args := m.Called(ctx, providerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.AvailabilityProfile), args.Error(1)
}

func (m *MockBookingService) UpdateAvailability(ctx context.Context, providerID uuid.UUID, patch booking.ProfileUpdate) (*booking.AvailabilityProfile, error) {
	args := m.Called(ctx, providerID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.AvailabilityProfile), args.Error(1)
}

func newTestServer(svc BookingService) *httptest.Server {
	return httptest.NewServer(NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"}))
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sampleBooking(status booking.Status) *booking.Booking {
	return &booking.Booking{
		ID:              uuid.New(),
		LearnerID:       uuid.New(),
		ProviderID:      uuid.New(),
		SkillID:         uuid.New(),
		Status:          status,
		RequestedDate:   time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		RequestedTime:   booking.TimeOfDay(9 * 60),
		DurationMinutes: 90,
		CreditsCost:     15,
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	b := sampleBooking(booking.StatusPending)

	svc.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req booking.SessionRequest) bool {
		return req.Date == "2026-09-07" && req.Time == "09:00" && req.DurationMinutes == 90
	})).Return(b, nil)

	resp := doJSON(t, "POST", server.URL+"/bookings", map[string]any{
		"learner_id":     b.LearnerID.String(),
		"skill_id":       b.SkillID.String(),
		"provider_id":    b.ProviderID.String(),
		"date":           "2026-09-07",
		"time":           "09:00",
		"duration_hours": 1.5,
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[BookingResponse](t, resp)
	assert.Equal(t, b.ID, body.ID)
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, "09:00", body.Time)
	assert.Equal(t, 1.5, body.DurationHours)
}

func TestCreateBookingEndpoint_BadUUID(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	resp := doJSON(t, "POST", server.URL+"/bookings", map[string]any{
		"learner_id":  "not-a-uuid",
		"skill_id":    uuid.NewString(),
		"provider_id": uuid.NewString(),
	})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_learner_id", body.Error)
	svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingEndpoint_ValidationError(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	svc.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &booking.ValidationError{Reason: booking.ReasonOutsideHours, Message: "outside working hours"})

	resp := doJSON(t, "POST", server.URL+"/bookings", map[string]any{
		"learner_id":     uuid.NewString(),
		"skill_id":       uuid.NewString(),
		"provider_id":    uuid.NewString(),
		"date":           "2026-09-06",
		"time":           "09:00",
		"duration_hours": 1.0,
	})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, booking.ReasonOutsideHours, body.Error)
}

func TestAcceptEndpoint_Conflict(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	id := uuid.New()
	providerID := uuid.New()

	svc.On("AcceptBooking", mock.Anything, id, providerID).
		Return(nil, &booking.ConflictError{Guard: "accept", Message: "booking is declined"})

	resp := doJSON(t, "POST", fmt.Sprintf("%s/bookings/%s/accept", server.URL, id),
		map[string]string{"provider_id": providerID.String()})

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "accept", body.Error)
}

func TestGetBookingEndpoint_NotFound(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	id := uuid.New()
	svc.On("GetBooking", mock.Anything, id).Return(nil, booking.ErrBookingNotFound)

	resp := doJSON(t, "GET", server.URL+"/bookings/"+id.String(), nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "booking_not_found", body.Error)
}

func TestListBookingsEndpoint(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	learnerID := uuid.New()
	svc.On("ListBookingsByLearner", mock.Anything, learnerID, 5, 10).
		Return([]booking.Booking{*sampleBooking(booking.StatusAccepted)}, nil)

	resp := doJSON(t, "GET",
		fmt.Sprintf("%s/bookings?learner_id=%s&limit=5&offset=10", server.URL, learnerID), nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]BookingResponse](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, "accepted", body[0].Status)
}

func TestListBookingsEndpoint_MissingFilter(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	resp := doJSON(t, "GET", server.URL+"/bookings", nil)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "missing_filter", body.Error)
}

func TestRescheduleEndpoint(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	b := sampleBooking(booking.StatusRescheduleRequested)
	proposedDate := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	proposedTime := booking.TimeOfDay(11 * 60)
	proposedBy := booking.ActorLearner
	b.ProposedDate = &proposedDate
	b.ProposedTime = &proposedTime
	b.ProposedBy = &proposedBy

	svc.On("RequestReschedule", mock.Anything, b.ID, b.LearnerID, "2026-09-08", "11:00").Return(b, nil)

	resp := doJSON(t, "POST", fmt.Sprintf("%s/bookings/%s/reschedule", server.URL, b.ID),
		map[string]string{
			"actor_id": b.LearnerID.String(),
			"new_date": "2026-09-08",
			"new_time": "11:00",
		})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[BookingResponse](t, resp)
	require.NotNil(t, body.ProposedTime)
	assert.Equal(t, "11:00", *body.ProposedTime)
	require.NotNil(t, body.ProposedBy)
	assert.Equal(t, "learner", *body.ProposedBy)
}

func TestAvailabilityEndpoints(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	providerID := uuid.New()
	profile := &booking.AvailabilityProfile{
		ProviderID: providerID,
		Timezone:   "Europe/London",
		Weekly: booking.WeeklySchedule{
			"monday": {Enabled: true, Slots: []booking.SlotRange{{Start: 9 * 60, End: 12 * 60}}},
		},
		MinAdvanceHours: 2,
		MaxAdvanceDays:  30,
	}

	svc.On("CreateAvailability", mock.Anything, providerID, mock.MatchedBy(func(in booking.ProfileInput) bool {
		return in.Timezone == "Europe/London" && in.Weekly["monday"].Enabled
	})).Return(profile, nil)
	svc.On("GetAvailability", mock.Anything, providerID).Return(profile, nil)

	resp := doJSON(t, "POST", fmt.Sprintf("%s/providers/%s/availability", server.URL, providerID),
		map[string]any{
			"timezone": "Europe/London",
			"weekly_schedule": map[string]any{
				"monday": map[string]any{
					"enabled": true,
					"slots":   []map[string]string{{"start": "09:00", "end": "12:00"}},
				},
			},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, "GET", fmt.Sprintf("%s/providers/%s/availability", server.URL, providerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[AvailabilityResponse](t, resp)
	assert.Equal(t, "Europe/London", body.Timezone)
	assert.Equal(t, booking.TimeOfDay(9*60), body.WeeklySchedule["monday"].Slots[0].Start)
}

func TestUpdateAvailabilityEndpoint_NotFound(t *testing.T) {
	svc := &MockBookingService{}
	server := newTestServer(svc)
	defer server.Close()

	providerID := uuid.New()
	svc.On("UpdateAvailability", mock.Anything, providerID, mock.Anything).
		Return(nil, booking.ErrProfileNotFound)

	resp := doJSON(t, "PUT", fmt.Sprintf("%s/providers/%s/availability", server.URL, providerID),
		map[string]any{"buffer_minutes": 15})

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "availability_profile_not_found", body.Error)
}
