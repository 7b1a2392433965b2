// Package feature maps an appointment prediction request onto the named
// feature vector the trained model scores. The mapping is pure and
// deterministic; patient-history features unavailable at request time get
// population defaults.
package feature

import (
	"fmt"
	"strings"
	"time"
)

// Population defaults for history features of previously unseen patients.
const (
	defaultRollingNoShowRate = 0.2
	defaultPrevAppointments  = 0
)

// Appointment is the raw request payload, before feature mapping.
type Appointment struct {
	PatientID      int64
	Gender         string
	Age            int
	ScheduledDay   string
	AppointmentDay string
	Neighbourhood  string
	Scholarship    bool
	Hypertension   bool
	Diabetes       bool
	Alcoholism     bool
	Handicap       int
	SMSReceived    bool
}

// Vector builds the model's feature vector. Day fields accept RFC 3339
// timestamps or plain "2006-01-02" dates.
func Vector(a Appointment) (map[string]float64, error) {
	scheduled, err := parseDay(a.ScheduledDay)
	if err != nil {
		return nil, fmt.Errorf("scheduled_day: %w", err)
	}
	appointment, err := parseDay(a.AppointmentDay)
	if err != nil {
		return nil, fmt.Errorf("appointment_day: %w", err)
	}

	leadDays := appointment.Truncate(24*time.Hour).Sub(scheduled.Truncate(24*time.Hour)).Hours() / 24
	if leadDays < 0 {
		leadDays = 0
	}

	v := map[string]float64{
		"hour_block":            float64(scheduled.Hour() / 4),
		"day_of_week":           float64(int(appointment.Weekday())),
		"is_holiday_or_weekend": boolToFloat(isWeekend(appointment)),
		"lead_time_days":        leadDays,
		"same_day_appointment":  boolToFloat(leadDays == 0),
		"appointment_month":     float64(int(appointment.Month())),
		"age":                   float64(a.Age),
		"gender_encoded":        boolToFloat(strings.EqualFold(a.Gender, "M")),
		"scholarship":           boolToFloat(a.Scholarship),
		"hypertension":          boolToFloat(a.Hypertension),
		"diabetes":              boolToFloat(a.Diabetes),
		"alcoholism":            boolToFloat(a.Alcoholism),
		"handicap":              float64(a.Handicap),
		"sms_received":          boolToFloat(a.SMSReceived),
		"rolling_no_show_rate":  defaultRollingNoShowRate,
		"prev_appointments":     defaultPrevAppointments,
	}
	return v, nil
}

func parseDay(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
