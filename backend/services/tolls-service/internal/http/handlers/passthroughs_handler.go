package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"takeatoll/backend/services/tolls-service/internal/service"
)

const maxEventBody = 64 * 1024

var stationIDPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// EventDispatcher records passthrough events.
type EventDispatcher interface {
	HandleEvent(ctx context.Context, stationID int64, ev *service.Event) (*service.EventResult, error)
}

// PassthroughsHandler serves station passthrough events.
type PassthroughsHandler struct {
	dispatcher EventDispatcher
	logger     *zap.Logger
}

// NewPassthroughsHandler builds handler.
func NewPassthroughsHandler(dispatcher EventDispatcher, logger *zap.Logger) *PassthroughsHandler {
	return &PassthroughsHandler{dispatcher: dispatcher, logger: logger}
}

// Store handles POST /api/stations/{stationId}/passthroughs.
func (h *PassthroughsHandler) Store(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("stationId")
	if !stationIDPattern.MatchString(raw) {
		writeError(w, http.StatusNotFound, service.ErrStationNotFound.Error())
		return
	}
	stationID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, service.ErrStationNotFound.Error())
		return
	}

	ev, err := decodeEvent(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		h.logger.Debug("unreadable passthrough body", zap.Error(err))
	}

	result, err := h.dispatcher.HandleEvent(r.Context(), stationID, ev)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if result.Type == service.EventEntrance {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "passthrough": result.Segment})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "cost": result.Exit.Cost})
}

// decodeEvent reads a JSON object body. Empty, non-object and {} bodies all yield a nil
// event; serialNumber may be a JSON string or number.
func decodeEvent(body io.Reader) (*service.Event, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	return &service.Event{
		Type:         scalarString(fields["type"], false),
		SerialNumber: scalarString(fields["serialNumber"], true),
	}, nil
}

func scalarString(v interface{}, allowNumber bool) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		if allowNumber {
			return val.String()
		}
	}
	return ""
}
