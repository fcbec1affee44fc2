package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/andresuchdata/inventory-queue/internal/ledger"
	"github.com/andresuchdata/inventory-queue/internal/service"
	"github.com/andresuchdata/inventory-queue/internal/sizing"
)

// InventoryService is the part of service.InventoryService the handlers call
type InventoryService interface {
	Ledger(ctx context.Context, opts service.LedgerOptions) (*domain.LedgerReport, error)
	Restock(ctx context.Context, opts service.RestockOptions) (*domain.RestockReport, error)
	Stations(ctx context.Context, req service.StationRequest) (*domain.StationPlan, error)
	CheckOrder(ctx context.Context, order domain.ManualOrder, policy ledger.ShortfallPolicy) (*domain.OrderCheck, error)
	Dashboard(ctx context.Context, opts service.DashboardOptions) (*domain.Dashboard, error)
}

type InventoryHandler struct {
	service InventoryService
}

func NewInventoryHandler(service InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

type replayRequest struct {
	Policy string               `json:"policy"`
	Orders []domain.ManualOrder `json:"orders" binding:"dive"`
}

type checkOrderRequest struct {
	Policy string             `json:"policy"`
	Lines  []domain.OrderLine `json:"lines" binding:"required,min=1,dive"`
}

func parsePolicy(raw string) (ledger.ShortfallPolicy, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return ledger.ParseShortfallPolicy(raw)
}

func (h *InventoryHandler) ledgerOptions(c *gin.Context) (service.LedgerOptions, error) {
	policy, err := parsePolicy(c.Query("policy"))
	if err != nil {
		return service.LedgerOptions{}, err
	}
	return service.LedgerOptions{Policy: policy}, nil
}

func (h *InventoryHandler) restockOptions(c *gin.Context) (service.RestockOptions, error) {
	ledgerOpts, err := h.ledgerOptions(c)
	if err != nil {
		return service.RestockOptions{}, err
	}

	opts := service.RestockOptions{LedgerOptions: ledgerOpts}
	if raw := strings.TrimSpace(c.Query("horizon")); raw != "" {
		horizon, err := strconv.Atoi(raw)
		if err != nil || horizon <= 0 {
			return service.RestockOptions{}, fmt.Errorf("horizon must be a positive integer")
		}
		opts.Horizon = horizon
	}
	return opts, nil
}

func (h *InventoryHandler) stationRequest(c *gin.Context) (service.StationRequest, error) {
	var (
		req      service.StationRequest
		parseErr error
	)

	parseFloat64 := func(param string) *float64 {
		value := strings.TrimSpace(c.Query(param))
		if value == "" || parseErr != nil {
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			parseErr = fmt.Errorf("%s must be a number", param)
			return nil
		}
		return &f
	}

	if raw := strings.TrimSpace(c.Query("stations")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("stations must be an integer")
		}
		if n < 1 || n > sizing.MaxStations {
			return req, fmt.Errorf("stations must be between 1 and %d", sizing.MaxStations)
		}
		req.CurrentStations = &n
	}

	req.CurrentOrderMinutes = parseFloat64("current_order_minutes")
	req.CurrentRestockMinutes = parseFloat64("current_restock_minutes")
	req.TargetOrderMinutes = parseFloat64("target_order_minutes")
	req.TargetRestockMinutes = parseFloat64("target_restock_minutes")

	return req, parseErr
}

func (h *InventoryHandler) GetInventory(c *gin.Context) {
	opts, err := h.ledgerOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Ledger(c.Request.Context(), opts)
	if err != nil {
		serviceError(c, "failed to replay ledger", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InventoryHandler) ReplayWithOrders(c *gin.Context) {
	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	policy, err := parsePolicy(req.Policy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Ledger(c.Request.Context(), service.LedgerOptions{Policy: policy, ManualOrders: req.Orders})
	if err != nil {
		serviceError(c, "failed to replay ledger", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InventoryHandler) CheckOrder(c *gin.Context) {
	var req checkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	policy, err := parsePolicy(req.Policy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	check, err := h.service.CheckOrder(c.Request.Context(), domain.ManualOrder{Lines: req.Lines}, policy)
	if err != nil {
		serviceError(c, "failed to check order", err)
		return
	}

	c.JSON(http.StatusOK, check)
}

func (h *InventoryHandler) GetRestock(c *gin.Context) {
	opts, err := h.restockOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Restock(c.Request.Context(), opts)
	if err != nil {
		serviceError(c, "failed to build restock recommendation", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InventoryHandler) GetStations(c *gin.Context) {
	req, err := h.stationRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.service.Stations(c.Request.Context(), req)
	if err != nil {
		serviceError(c, "failed to size stations", err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *InventoryHandler) GetDashboard(c *gin.Context) {
	restockOpts, err := h.restockOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stations, err := h.stationRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.service.Dashboard(c.Request.Context(), service.DashboardOptions{
		RestockOptions: restockOpts,
		Stations:       stations,
	})
	if err != nil {
		serviceError(c, "failed to fetch dashboard", err)
		return
	}

	c.JSON(http.StatusOK, data)
}

func serviceError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidOrder):
		status = http.StatusBadRequest
	}

	log.Error().Err(err).Int("status", status).Msg(message)
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
