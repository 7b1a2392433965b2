package dto

// PredictionRequest is one appointment to score. Day fields accept
// RFC 3339 timestamps or plain dates.
type PredictionRequest struct {
	PatientID      int64  `json:"patient_id" binding:"required"`
	Gender         string `json:"gender" binding:"required"`
	Age            int    `json:"age" binding:"gte=0,lte=130"`
	ScheduledDay   string `json:"scheduled_day" binding:"required"`
	AppointmentDay string `json:"appointment_day" binding:"required"`
	Neighbourhood  string `json:"neighbourhood"`
	Scholarship    bool   `json:"scholarship"`
	Hypertension   bool   `json:"hypertension"`
	Diabetes       bool   `json:"diabetes"`
	Alcoholism     bool   `json:"alcoholism"`
	Handicap       int    `json:"handicap"`
	SMSReceived    bool   `json:"sms_received"`
}

type PredictionResponse struct {
	Probability         float64 `json:"probability"`
	IsNoShow            bool    `json:"is_no_show"`
	ModelName           string  `json:"model_name"`
	ModelVersion        string  `json:"model_version"`
	Status              string  `json:"status"`
	PredictionTimestamp string  `json:"prediction_timestamp"`
}

type ReloadResponse struct {
	Status       string `json:"status"`
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	ActiveVersion string `json:"active_version"`
}
