package services

import (
	"fmt"

	"github.com/weboryskills/webory-backend/internal/types"
)

const (
	courseMinProgress      = 100.0
	courseMinScore         = 90.0
	internshipMinTaskRatio = 0.8
)

// CourseEligibility is the completion gate for course certificates: full video
// progress and an overall graded score of at least 90. A course with no graded
// items counts as a perfect score.
func CourseEligibility(e *types.Enrollment) (bool, string) {
	if e.Progress < courseMinProgress {
		return false, fmt.Sprintf("course progress %.0f%% below required 100%%", e.Progress)
	}
	score := e.Score
	if e.GradedItems == 0 {
		score = 100
	}
	if score < courseMinScore {
		return false, fmt.Sprintf("overall score %.1f below required %.0f", score, courseMinScore)
	}
	return true, ""
}

// InternshipEligibility requires a completed placement with at least 80% of
// graded tasks approved.
func InternshipEligibility(a *types.Application) (bool, string) {
	if a.Status != types.ApplicationStatusCompleted {
		return false, fmt.Sprintf("internship status is %q, not completed", a.Status)
	}
	if a.TotalTasks == 0 {
		return false, "internship has no graded tasks"
	}
	ratio := float64(a.ApprovedTasks) / float64(a.TotalTasks)
	if ratio < internshipMinTaskRatio {
		return false, fmt.Sprintf("only %d of %d tasks approved, below required 80%%", a.ApprovedTasks, a.TotalTasks)
	}
	return true, ""
}
