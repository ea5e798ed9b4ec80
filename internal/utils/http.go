// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the JSON body of every non-2xx response of the record
// server.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON marshals data, sets the JSON content type and writes statusCode
// followed by the body. On a marshal failure it answers 500.
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(jsonData)
}

// WriteError writes msg as an [ErrorResponse].
func WriteError(w http.ResponseWriter, msg string, statusCode int) {
	WriteJSON(w, ErrorResponse{Error: msg}, statusCode)
}
