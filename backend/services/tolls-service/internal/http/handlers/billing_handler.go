package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"takeatoll/backend/services/tolls-service/internal/export"
	"takeatoll/backend/services/tolls-service/internal/models"
	"takeatoll/backend/services/tolls-service/internal/service"
)

// StatementBuilder produces billing statements.
type StatementBuilder interface {
	Statement(ctx context.Context, start, end time.Time) (*models.BillingStatement, error)
}

// BillingHandler serves billing totals and exports.
type BillingHandler struct {
	svc    StatementBuilder
	logger *zap.Logger
}

// NewBillingHandler builds handler.
func NewBillingHandler(svc StatementBuilder, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{svc: svc, logger: logger}
}

// Totals handles GET /api/billing?start=YYYY-MM-DD&end=YYYY-MM-DD&format=json|xlsx|pdf.
func (h *BillingHandler) Totals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported format")
		return
	}
	start, end, err := service.ParsePeriod(q.Get("start"), q.Get("end"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	stmt, err := h.svc.Statement(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if format == export.FormatJSON {
		totals := make(map[string]float64, len(stmt.Lines))
		for _, line := range stmt.Lines {
			totals[strconv.FormatInt(line.CustomerID, 10)] = line.AmountDue
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":     true,
			"start":  stmt.Start.Format(service.DateLayout),
			"end":    stmt.End.Format(service.DateLayout),
			"totals": totals,
			"total":  stmt.Total,
		})
		return
	}

	data, err := export.Render(stmt, format)
	if err != nil {
		h.logger.Error("billing export failed", zap.String("format", string(format)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	writeFile(w, format.ContentType(), format.FileName(stmt), data)
}
