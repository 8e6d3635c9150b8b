package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/session-scheduling/internal/config"
)

func TestCreateAvailability_DefaultsAndNormalization(t *testing.T) {
	env := newTestEnv(config.Config{})
	providerID := uuid.New()

	env.repo.On("CreateProfile", mock.Anything, mock.MatchedBy(func(p AvailabilityProfile) bool {
		monday := p.Weekly["monday"]
		return p.Timezone == "UTC" &&
			p.MinAdvanceHours == DefaultMinAdvanceHours &&
			p.MaxAdvanceDays == DefaultMaxAdvanceDays &&
			// overlapping declared slots are stored merged
			len(monday.Slots) == 1 &&
			monday.Slots[0] == slot("09:00", "12:00")
	})).Return(&AvailabilityProfile{ProviderID: providerID}, nil)
	env.expectEvent()

	_, err := env.svc.CreateAvailability(context.Background(), providerID, ProfileInput{
		Weekly: WeeklySchedule{
			"monday": {Enabled: true, Slots: []SlotRange{
				slot("09:00", "11:00"),
				slot("10:00", "12:00"),
			}},
		},
	})
	require.NoError(t, err)
	env.repo.AssertExpectations(t)
}

func TestCreateAvailability_Invalid(t *testing.T) {
	env := newTestEnv(config.Config{})
	providerID := uuid.New()

	cases := []struct {
		name  string
		input ProfileInput
	}{
		{
			name:  "bad timezone",
			input: ProfileInput{Timezone: "Moon/Base"},
		},
		{
			name: "bad weekday key",
			input: ProfileInput{Weekly: WeeklySchedule{
				"funday": {Enabled: true},
			}},
		},
		{
			name:  "negative buffer",
			input: ProfileInput{BufferMinutes: -5},
		},
		{
			name:  "malformed blocked date",
			input: ProfileInput{BlockedDates: []BlockedDate{{Date: "next tuesday"}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateAvailability(context.Background(), providerID, tc.input)
			assert.Equal(t, ReasonInvalidFormat, reasonOf(t, err))
		})
	}

	env.repo.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything)
}

func TestCreateAvailability_MissingProvider(t *testing.T) {
	env := newTestEnv(config.Config{})

	_, err := env.svc.CreateAvailability(context.Background(), uuid.Nil, ProfileInput{})
	assert.Equal(t, ReasonMissingField, reasonOf(t, err))
}

func TestCreateAvailability_AlreadyExists(t *testing.T) {
	env := newTestEnv(config.Config{})
	providerID := uuid.New()

	env.repo.On("CreateProfile", mock.Anything, mock.Anything).Return(nil, ErrProfileExists)

	_, err := env.svc.CreateAvailability(context.Background(), providerID, ProfileInput{})
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestUpdateAvailability_Partial(t *testing.T) {
	env := newTestEnv(config.Config{})
	providerID := uuid.New()

	existing := testProfile(providerID)
	buffer := 30

	env.repo.On("GetProfile", mock.Anything, providerID).Return(existing, nil)
	env.repo.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(p AvailabilityProfile) bool {
		// only the buffer changes, the rest of the profile survives
		return p.BufferMinutes == 30 &&
			p.MinAdvanceHours == existing.MinAdvanceHours &&
			p.Weekly["tuesday"].Enabled
	})).Return(existing, nil)
	env.expectEvent()

	_, err := env.svc.UpdateAvailability(context.Background(), providerID, ProfileUpdate{
		BufferMinutes: &buffer,
	})
	require.NoError(t, err)
	env.repo.AssertExpectations(t)
}

func TestUpdateAvailability_NotFound(t *testing.T) {
	env := newTestEnv(config.Config{})
	providerID := uuid.New()

	env.repo.On("GetProfile", mock.Anything, providerID).Return(nil, ErrProfileNotFound)

	// Updating without a prior profile never creates one implicitly.
	_, err := env.svc.UpdateAvailability(context.Background(), providerID, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrProfileNotFound)
	env.repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}
