package dal

import (
	"context"
	"net/url"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
)

// CreateAttendance records a manual check-in.
func (s *Service) CreateAttendance(ctx context.Context, req models.CreateAttendanceRequest) (models.Attendance, error) {
	return api.Post[models.Attendance](ctx, s.client, "/attendance", req, api.RequestConfig{})
}

// QRCheckIn checks in with a QR token. The token itself is the credential.
func (s *Service) QRCheckIn(ctx context.Context, req models.QRCheckInRequest) (models.Attendance, error) {
	return api.Post[models.Attendance](ctx, s.client, "/attendance/qr-checkin", req, public)
}

// AttendanceHistory returns one page of check-ins in a date range.
func (s *Service) AttendanceHistory(ctx context.Context, p models.AttendanceHistoryParams) (api.Paginated[models.Attendance], error) {
	q := pageValues(p.PageParams)
	if p.StartDate != "" {
		q.Set("start_date", p.StartDate)
	}
	if p.EndDate != "" {
		q.Set("end_date", p.EndDate)
	}
	return api.Get[api.Paginated[models.Attendance]](ctx, s.client, "/attendance/history", api.RequestConfig{Params: q})
}

// AttendanceAnalytics aggregates check-ins for one day.
func (s *Service) AttendanceAnalytics(ctx context.Context, p models.AttendanceAnalyticsParams) (models.AttendanceAnalytics, error) {
	q := url.Values{}
	if p.Date != "" {
		q.Set("date", p.Date)
	}
	return api.Get[models.AttendanceAnalytics](ctx, s.client, "/attendance/analytics", api.RequestConfig{Params: q})
}

// GenerateQRCode issues a check-in QR code for a user.
func (s *Service) GenerateQRCode(ctx context.Context, req models.GenerateQRRequest) (models.QRCode, error) {
	return api.Post[models.QRCode](ctx, s.client, "/qr/generate", req, api.RequestConfig{})
}
