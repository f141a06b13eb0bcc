package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from RequestStatus
		to   RequestStatus
		want bool
	}{
		{name: "pending to approved", from: RequestStatusPending, to: RequestStatusApproved, want: true},
		{name: "approved to completed", from: RequestStatusApproved, to: RequestStatusCompleted, want: true},
		{name: "pending to completed skips approval", from: RequestStatusPending, to: RequestStatusCompleted, want: false},
		{name: "approved back to pending", from: RequestStatusApproved, to: RequestStatusPending, want: false},
		{name: "completed is terminal", from: RequestStatusCompleted, to: RequestStatusApproved, want: false},
		{name: "same status is not a transition", from: RequestStatusApproved, to: RequestStatusApproved, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRedemptionStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from RedemptionStatus
		to   RedemptionStatus
		want bool
	}{
		{name: "pending to out_for_delivery", from: RedemptionStatusPending, to: RedemptionStatusOutForDelivery, want: true},
		{name: "out_for_delivery to will_reach_today", from: RedemptionStatusOutForDelivery, to: RedemptionStatusWillReachToday, want: true},
		{name: "will_reach_today to completed", from: RedemptionStatusWillReachToday, to: RedemptionStatusCompleted, want: true},
		{name: "skip a stage", from: RedemptionStatusPending, to: RedemptionStatusWillReachToday, want: false},
		{name: "regress", from: RedemptionStatusWillReachToday, to: RedemptionStatusOutForDelivery, want: false},
		{name: "re-set same stage", from: RedemptionStatusOutForDelivery, to: RedemptionStatusOutForDelivery, want: false},
		{name: "completed is terminal", from: RedemptionStatusCompleted, to: RedemptionStatusPending, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestParseRedemptionStatus(t *testing.T) {
	got, ok := ParseRedemptionStatus("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, RedemptionStatusOutForDelivery, got)

	_, ok = ParseRedemptionStatus("delivered")
	assert.False(t, ok)
}

func TestIsValidWasteCategory(t *testing.T) {
	for _, c := range WasteCategories {
		assert.True(t, IsValidWasteCategory(c), string(c))
	}
	assert.False(t, IsValidWasteCategory("Organic"))
	assert.False(t, IsValidWasteCategory("plastic"))
}
