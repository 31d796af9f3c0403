package model

import "time"

type LearningMode string

const (
	LearningModeOnSite LearningMode = "onSite"
	LearningModeOnline LearningMode = "online"
	LearningModeHybrid LearningMode = "hybrid"
)

// CourseTemplate carries the catalogue data a class group is priced from.
type CourseTemplate struct {
	ID          string
	Title       string
	Description string
	Fee         int64
	CreatedAt   time.Time
}

// ClassGroup is a scheduled run of a course template, e.g.
// "Frontend Dev – July Batch". EnrolledUserIDs is a set; the enrollment
// repository guarantees no duplicates. Capacity is a soft cap and is not
// enforced by the reconciliation workflow.
type ClassGroup struct {
	ID               string
	CourseTemplateID string
	ClassName        string
	StartDate        time.Time
	EndDate          time.Time
	Capacity         int
	Location         string
	LearningMode     LearningMode
	EnrolledUserIDs  []string
	CreatedAt        time.Time
}

// StartsWithin reports whether the class begins inside the given window from
// now; used to decide whether an imminent-start SMS reminder is due.
func (g *ClassGroup) StartsWithin(window time.Duration) bool {
	until := time.Until(g.StartDate)
	return until >= 0 && until <= window
}
