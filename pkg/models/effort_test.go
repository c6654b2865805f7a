package models

import (
	"reflect"
	"testing"
)

func TestEffortLevel(t *testing.T) {
	tests := []struct {
		effort EstimatedEffort
		want   string
	}{
		{EffortQuick, "quick"},
		{EffortShort, "quick"},
		{EffortSmall, "short"},
		{EffortMedium, "medium"},
		{EffortLarge, "large"},
		{EffortXLarge, "large"},
		{EffortEpic, "epic"},
		{EffortMassive, "epic"},
		{EstimatedEffort("unknown"), "medium"},
	}

	for _, tt := range tests {
		t.Run(string(tt.effort), func(t *testing.T) {
			if got := tt.effort.Level(); got != tt.want {
				t.Errorf("Level() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestLabels(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			"frontend work",
			"Build React component for the dashboard UI",
			[]string{"frontend"},
		},
		{
			"backend bug",
			"Fix broken API endpoint returning 500",
			[]string{"backend", "bug"},
		},
		{
			"no keywords",
			"Miscellaneous housekeeping",
			nil,
		},
		{
			"capped at five",
			"fix broken react api docs test security slow deploy refactor",
			[]string{"frontend", "backend", "bug", "documentation", "testing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestLabels(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestLabels() = %v, want %v", got, tt.want)
			}
		})
	}
}
