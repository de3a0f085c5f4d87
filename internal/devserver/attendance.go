package devserver

import (
	"net/http"
	"sort"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// POST /attendance
func (s *Server) createAttendance(c *gin.Context) {
	var req models.CreateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := s.store.CheckIn(req.UserID)
	if err != nil {
		s.failStore(c, err)
		return
	}
	s.logger.Info().
		Str("user_id", a.UserID).
		Str("recorded_by", currentUser(c).ID).
		Msg("attendance recorded")
	ok(c, http.StatusCreated, a)
}

// POST /attendance/qr-checkin
func (s *Server) qrCheckIn(c *gin.Context) {
	var req models.QRCheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := s.store.RedeemQR(req.QRCodeToken)
	if err != nil {
		s.failStore(c, err)
		return
	}
	s.logger.Info().Str("user_id", a.UserID).Msg("qr check-in")
	ok(c, http.StatusCreated, a)
}

// parseDates parses named YYYY-MM-DD values, collecting a detail per bad field.
func parseDates(fields map[string]string) (map[string]time.Time, []api.FieldError) {
	out := make(map[string]time.Time, len(fields))
	var details []api.FieldError
	for name, v := range fields {
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			details = append(details, api.FieldError{Field: name, Message: "must be a date in YYYY-MM-DD format"})
			continue
		}
		out[name] = t
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })
	return out, details
}

// GET /attendance/history
func (s *Server) attendanceHistory(c *gin.Context) {
	var p models.AttendanceHistoryParams
	if !bindQuery(c, &p) {
		return
	}
	dates, details := parseDates(map[string]string{"start_date": p.StartDate, "end_date": p.EndDate})
	if len(details) > 0 {
		fail(c, http.StatusUnprocessableEntity, CodeValidation, "Validation failed", details)
		return
	}

	var to time.Time
	if end, found := dates["end_date"]; found {
		to = end.AddDate(0, 0, 1)
	}
	ok(c, http.StatusOK, paginate(s.store.Attendance(dates["start_date"], to), p.PageParams))
}

// GET /attendance/analytics
func (s *Server) attendanceAnalytics(c *gin.Context) {
	var p models.AttendanceAnalyticsParams
	if !bindQuery(c, &p) {
		return
	}
	dates, details := parseDates(map[string]string{"date": p.Date})
	if len(details) > 0 {
		fail(c, http.StatusUnprocessableEntity, CodeValidation, "Validation failed", details)
		return
	}
	day := dates["date"]
	ok(c, http.StatusOK, analytics(p.Date, s.store.Attendance(day, day.AddDate(0, 0, 1))))
}

func analytics(date string, records []models.Attendance) models.AttendanceAnalytics {
	out := models.AttendanceAnalytics{Date: date, HourlyBreakdown: []models.HourlyCount{}}

	seen := make(map[string]bool)
	hours := make(map[int]int)
	for _, a := range records {
		hours[a.CheckedInAt.UTC().Hour()]++
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		out.TotalAttendees++
		if a.User.Member {
			out.MembersCount++
		}
		if a.User.Visitor {
			out.VisitorsCount++
		}
	}

	for h, n := range hours {
		out.HourlyBreakdown = append(out.HourlyBreakdown, models.HourlyCount{Hour: h, Count: n})
	}
	sort.Slice(out.HourlyBreakdown, func(i, j int) bool {
		return out.HourlyBreakdown[i].Hour < out.HourlyBreakdown[j].Hour
	})
	return out
}

// POST /qr/generate
func (s *Server) generateQRCode(c *gin.Context) {
	var req models.GenerateQRRequest
	if !bindJSON(c, &req) {
		return
	}
	qr, err := s.store.IssueQR(req.UserID, s.qrTTL)
	if err != nil {
		s.failStore(c, err)
		return
	}
	ok(c, http.StatusCreated, qr)
}
