package models

import "time"

// SessionInfo — представление сессии для локального HTTP API и CLI.
// Токены сюда не попадают.
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	State         string     `json:"state"`
	Username      string     `json:"username,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Route         string     `json:"route,omitempty"`
}

// NavigationResult — итог перехода по маршруту.
type NavigationResult struct {
	Requested string `json:"requested"`
	Route     string `json:"route"`
}
