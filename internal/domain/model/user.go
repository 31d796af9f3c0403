package model

import "time"

type CourseStatus string

const (
	CourseStatusFree     CourseStatus = "free"
	CourseStatusPaid     CourseStatus = "paid"
	CourseStatusNotPaid  CourseStatus = "not paid"
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusEnrolled CourseStatus = "enrolled"
)

type UserPaymentStatus string

const (
	UserPaymentPending UserPaymentStatus = "pending"
	UserPaymentSuccess UserPaymentStatus = "success"
	UserPaymentFailed  UserPaymentStatus = "failed"
)

// User is the account mutated by reconciliation. Courses and PaymentIDs are
// sets maintained by the repository (join tables); they never hold duplicates.
type User struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	PasswordHash  string
	CourseStatus  CourseStatus
	PaymentStatus UserPaymentStatus
	Courses       []string // ClassGroup IDs
	PaymentIDs    []string // Payment IDs, append-only
	CreatedAt     time.Time
}
