package models

import "testing"

func TestPriorityOrder(t *testing.T) {
	tests := []struct {
		p    Priority
		want int
	}{
		{PriorityLow, 1},
		{PriorityMedium, 2},
		{PriorityHigh, 3},
		{PriorityUrgent, 4},
		{PriorityCritical, 5},
		{Priority("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.p), func(t *testing.T) {
			if got := tt.p.Order(); got != tt.want {
				t.Errorf("Order() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriorityLess(t *testing.T) {
	if !PriorityLow.Less(PriorityCritical) {
		t.Error("low should rank below critical")
	}
	if PriorityCritical.Less(PriorityLow) {
		t.Error("critical should not rank below low")
	}
	if PriorityMedium.Less(PriorityMedium) {
		t.Error("a priority should not rank below itself")
	}
}

func TestPriorityFlags(t *testing.T) {
	if !PriorityCritical.IsCritical() || PriorityUrgent.IsCritical() {
		t.Error("only critical should be critical")
	}
	for _, p := range []Priority{PriorityHigh, PriorityUrgent, PriorityCritical} {
		if !p.IsHighOrCritical() {
			t.Errorf("IsHighOrCritical() = false for %s", p)
		}
	}
	for _, p := range []Priority{PriorityLow, PriorityMedium} {
		if p.IsHighOrCritical() {
			t.Errorf("IsHighOrCritical() = true for %s", p)
		}
	}
}
