package services

import (
	"testing"

	"github.com/weboryskills/webory-backend/internal/types"
)

func TestCourseEligibility(t *testing.T) {
	cases := []struct {
		name        string
		progress    float64
		score       float64
		gradedItems int
		want        bool
	}{
		{"complete and high score", 100, 95, 4, true},
		{"complete with exactly 90", 100, 90, 4, true},
		{"complete but low score", 100, 89.9, 4, false},
		{"ungraded course counts as full score", 100, 0, 0, true},
		{"incomplete progress", 99.5, 100, 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &types.Enrollment{Progress: tc.progress, Score: tc.score, GradedItems: tc.gradedItems}
			got, reason := CourseEligibility(e)
			if got != tc.want {
				t.Errorf("eligible = %v (%s), want %v", got, reason, tc.want)
			}
			if !got && reason == "" {
				t.Error("ineligible result needs a reason")
			}
		})
	}
}

func TestInternshipEligibility(t *testing.T) {
	cases := []struct {
		name     string
		status   string
		approved int
		total    int
		want     bool
	}{
		{"completed with all tasks approved", types.ApplicationStatusCompleted, 10, 10, true},
		{"completed at exactly 80 percent", types.ApplicationStatusCompleted, 8, 10, true},
		{"completed below 80 percent", types.ApplicationStatusCompleted, 7, 10, false},
		{"still active", types.ApplicationStatusActive, 10, 10, false},
		{"no graded tasks", types.ApplicationStatusCompleted, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &types.Application{Status: tc.status, ApprovedTasks: tc.approved, TotalTasks: tc.total}
			got, reason := InternshipEligibility(a)
			if got != tc.want {
				t.Errorf("eligible = %v (%s), want %v", got, reason, tc.want)
			}
		})
	}
}
