package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"takeatoll/backend/services/tolls-service/internal/service"
)

const internalErrorMessage = "Internal server error"

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFile(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "message": message})
}

// writeServiceError maps service errors onto the response envelope. Anything that is not a
// validation failure is logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrStationNotFound), errors.Is(err, service.ErrTransponderNotFound):
		writeError(w, http.StatusNotFound, validationMessage(err))
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

// validationMessage strips wrapping context so clients see the bare sentinel text.
func validationMessage(err error) string {
	for _, target := range []error{
		service.ErrStationNotFound,
		service.ErrMissingBody,
		service.ErrInvalidType,
		service.ErrMissingSerial,
		service.ErrTransponderNotFound,
		service.ErrNoSegmentToClose,
		service.ErrInvalidPeriod,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
