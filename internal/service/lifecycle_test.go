package service

import (
	"testing"

	"github.com/bookbarn/api/internal/enum"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{enum.OrderStatusPending, enum.OrderStatusConfirmed, true},
		{enum.OrderStatusPending, enum.OrderStatusCancelled, true},
		{enum.OrderStatusPending, enum.OrderStatusShipped, false},
		{enum.OrderStatusPending, enum.OrderStatusDelivered, false},
		{enum.OrderStatusConfirmed, enum.OrderStatusShipped, true},
		{enum.OrderStatusConfirmed, enum.OrderStatusCancelled, false},
		{enum.OrderStatusConfirmed, enum.OrderStatusPending, false},
		{enum.OrderStatusShipped, enum.OrderStatusDelivered, true},
		{enum.OrderStatusShipped, enum.OrderStatusCancelled, false},
		{enum.OrderStatusDelivered, enum.OrderStatusShipped, false},
		{enum.OrderStatusCancelled, enum.OrderStatusPending, false},
		{enum.OrderStatusCompleted, enum.OrderStatusShipped, false},
		{"bogus", enum.OrderStatusPending, false},
		{enum.OrderStatusPending, "bogus", false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []string{
		enum.OrderStatusDelivered,
		enum.OrderStatusCancelled,
		enum.OrderStatusCompleted,
	}
	for _, status := range terminal {
		if !IsTerminal(status) {
			t.Errorf("IsTerminal(%q) = false, want true", status)
		}
	}

	open := []string{
		enum.OrderStatusPending,
		enum.OrderStatusConfirmed,
		enum.OrderStatusShipped,
	}
	for _, status := range open {
		if IsTerminal(status) {
			t.Errorf("IsTerminal(%q) = true, want false", status)
		}
	}

	if IsTerminal("bogus") {
		t.Error(`IsTerminal("bogus") = true, want false`)
	}
}
