package utils

import (
	"encoding/json"
	"net/http"
)

// Envelope is the success wrapper the mobile client expects on every
// production endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON writes data as-is with the given status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success writes {"success":true,"data":...}.
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Error writes {"success":false,"message":...}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}
