// Package api exposes the fraud service over REST
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/service"
)

// FraudService is the application surface the handlers call
type FraudService interface {
	Analyze(ctx context.Context, actor string, input domain.TransactionInput, save bool) (*service.AnalyzeResult, error)
	Import(ctx context.Context, actor string, rows []domain.TransactionInput) (*service.ImportResult, error)
	ListTransactions(ctx context.Context, actor, status string, limit int) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, actor, transactionID string) (*domain.Transaction, error)
	TransitionTransaction(ctx context.Context, actor, transactionID, action string) (*domain.Transaction, error)
	Metrics(ctx context.Context, actor string, baseline *float64) (*domain.DashboardMetrics, error)
	ListAlerts(ctx context.Context, actor, status string, limit int) ([]*domain.Alert, error)
	UpdateAlertStatus(ctx context.Context, actor, alertID, status string) (*domain.Alert, error)
	DismissAlert(ctx context.Context, actor, alertID string) (*domain.Alert, error)
}

// Handler serves the REST routes
type Handler struct {
	svc FraudService
}

// NewHandler creates a handler over svc
func NewHandler(svc FraudService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts every route on e. auth guards the /api/v1 group
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	v1 := e.Group("/api/v1", auth)
	v1.GET("/transactions", h.ListTransactions)
	v1.POST("/transactions/analyze", h.Analyze)
	v1.POST("/transactions/import", h.Import)
	v1.GET("/transactions/:id", h.GetTransaction)
	v1.POST("/transactions/:id/status", h.TransitionTransaction)
	v1.GET("/metrics", h.Metrics)
	v1.GET("/alerts", h.ListAlerts)
	v1.PATCH("/alerts/:id", h.UpdateAlert)
	v1.DELETE("/alerts/:id", h.DismissAlert)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Analyze(c.Request().Context(), actorFrom(c), req.TransactionInput, req.Save)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Saved {
		status = http.StatusCreated
	}
	return c.JSON(status, newAnalyzeResponse(res))
}

func (h *Handler) Import(c echo.Context) error {
	var req ImportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Import(c.Request().Context(), actorFrom(c), req.Transactions)
	if err != nil {
		if res == nil {
			return err
		}
		// Earlier batches are already stored; report how many
		status, code := statusFor(err)
		body := ImportErrorResponse{
			ErrorResponse: ErrorResponse{Error: err.Error(), Code: code},
			Imported:      res.Imported,
			Alerts:        res.Alerts,
		}
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListTransactions(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	txs, err := h.svc.ListTransactions(c.Request().Context(), actorFrom(c), c.QueryParam("status"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(newTransactionList(txs)))
}

func (h *Handler) GetTransaction(c echo.Context) error {
	tx, err := h.svc.GetTransaction(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTransactionResponse(tx))
}

func (h *Handler) TransitionTransaction(c echo.Context) error {
	var req TransitionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tx, err := h.svc.TransitionTransaction(c.Request().Context(), actorFrom(c), c.Param("id"), req.Action)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTransactionResponse(tx))
}

func (h *Handler) Metrics(c echo.Context) error {
	var baseline *float64
	if raw := c.QueryParam("baseline_fraud_rate"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			return domain.NewValidationError("baseline_fraud_rate", "must be a percentage between 0 and 100")
		}
		baseline = &v
	}

	m, err := h.svc.Metrics(c.Request().Context(), actorFrom(c), baseline)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListAlerts(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	alerts, err := h.svc.ListAlerts(c.Request().Context(), actorFrom(c), c.QueryParam("status"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(alerts))
}

func (h *Handler) UpdateAlert(c echo.Context) error {
	var req AlertStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	alert, err := h.svc.UpdateAlertStatus(c.Request().Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *Handler) DismissAlert(c echo.Context) error {
	alert, err := h.svc.DismissAlert(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "malformed JSON")
	}
	return c.Validate(req)
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return v, nil
}
