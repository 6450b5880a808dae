package models

// Dashboard is the landing-page summary for an actor
type Dashboard struct {
	Projects       []Project `json:"projects"`
	RecentReports  []Report  `json:"recent_reports"`
	UpcomingAlerts []Alert   `json:"upcoming_alerts"`
	PendingReviews int       `json:"pending_reviews"`
}

// AdminStats holds the admin panel counters
type AdminStats struct {
	Users          int `json:"users"`
	Projects       int `json:"projects"`
	Reports        int `json:"reports"`
	PendingReports int `json:"pending_reports"`
}
