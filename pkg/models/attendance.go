package models

import "time"

// CreateAttendanceRequest records a manual check-in for a user.
type CreateAttendanceRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// QRCheckInRequest checks a user in with a previously generated QR token.
type QRCheckInRequest struct {
	QRCodeToken string `json:"qr_code_token" binding:"required"`
}

// AttendanceHistoryParams bound a history query by date (YYYY-MM-DD).
type AttendanceHistoryParams struct {
	StartDate string `json:"start_date" form:"start_date"`
	EndDate   string `json:"end_date" form:"end_date"`
	PageParams
}

// AttendanceAnalyticsParams select the day to aggregate (YYYY-MM-DD).
type AttendanceAnalyticsParams struct {
	Date string `json:"date" form:"date" binding:"required"`
}

// Attendance is a single check-in record.
type Attendance struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	User        User      `json:"user"`
	CheckedInAt time.Time `json:"checked_in_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HourlyCount is the number of check-ins within one hour of the day.
type HourlyCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// AttendanceAnalytics aggregates one day of check-ins.
type AttendanceAnalytics struct {
	Date            string        `json:"date"`
	TotalAttendees  int           `json:"total_attendees"`
	MembersCount    int           `json:"members_count"`
	VisitorsCount   int           `json:"visitors_count"`
	HourlyBreakdown []HourlyCount `json:"hourly_breakdown"`
}

// GenerateQRRequest asks for a check-in QR code for a user.
type GenerateQRRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// QRCode is a generated check-in code and the token it encodes.
type QRCode struct {
	QRCode    string    `json:"qr_code"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
