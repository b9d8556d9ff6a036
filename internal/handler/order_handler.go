package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"procurement-service/internal/apperr"
	"procurement-service/internal/export"
	"procurement-service/internal/pricing"
	"procurement-service/internal/repository"
	"procurement-service/pkg/logger"
	"procurement-service/prometheus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OrderLineRequest is one requested line of an order.
type OrderLineRequest struct {
	Item     uint            `json:"item"`
	OrderQty decimal.Decimal `json:"orderQty"`
	Discount decimal.Decimal `json:"discount"`
}

// OrderRequest defines the structure for order creation requests
type OrderRequest struct {
	Supplier  uint               `json:"supplier"`
	OrderDate *time.Time         `json:"orderDate"`
	Items     []OrderLineRequest `json:"items"`
}

// Validate checks the request and names the first failing field.
func (r *OrderRequest) Validate() error {
	if r.Supplier == 0 {
		return apperr.Validation("supplier is required")
	}
	return validateOrderLines(r.Items)
}

// OrderUpdateRequest defines the structure for partial order updates. A nil
// items list leaves the lines alone; providing one replaces them and the
// totals are recomputed.
type OrderUpdateRequest struct {
	Supplier  *uint              `json:"supplier"`
	OrderDate *time.Time         `json:"orderDate"`
	Items     []OrderLineRequest `json:"items"`
}

// Validate checks the provided fields and names the first failing one.
func (r *OrderUpdateRequest) Validate() error {
	if r.Supplier != nil && *r.Supplier == 0 {
		return apperr.Validation("supplier must not be empty")
	}
	if r.Items != nil {
		return validateOrderLines(r.Items)
	}
	return nil
}

func validateOrderLines(lines []OrderLineRequest) error {
	if len(lines) == 0 {
		return apperr.Validation("items must contain at least one line")
	}
	for _, line := range lines {
		if line.Item == 0 {
			return apperr.Validation("items.item is required")
		}
		if !line.OrderQty.IsPositive() {
			return apperr.Validation("items.orderQty must be a positive number")
		}
		if line.Discount.IsNegative() {
			return apperr.Validation("items.discount must not be negative")
		}
	}
	return nil
}

func requestedLines(lines []OrderLineRequest) []pricing.RequestedLine {
	if lines == nil {
		return nil
	}
	requested := make([]pricing.RequestedLine, 0, len(lines))
	for _, line := range lines {
		requested = append(requested, pricing.RequestedLine{
			ItemID:   line.Item,
			OrderQty: line.OrderQty,
			Discount: line.Discount,
		})
	}
	return requested
}

// OrderHandler serves the /orders endpoints.
type OrderHandler struct {
	repo *repository.OrderRepository
}

func NewOrderHandler(repo *repository.OrderRepository) *OrderHandler {
	return &OrderHandler{repo: repo}
}

// Create assembles and persists a new order
func (h *OrderHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new order")
	prometheus.RecordOperation("order", "create")

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	input := repository.CreateOrderInput{
		SupplierID: req.Supplier,
		Lines:      requestedLines(req.Items),
	}
	if req.OrderDate != nil {
		input.OrderDate = *req.OrderDate
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	order, err := h.repo.Create(input)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Order created successfully",
		zap.Uint("id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Int("lines", len(order.Lines)),
		zap.String("net_amount", order.NetAmount.String()))
	return c.JSON(http.StatusCreated, order)
}

// List retrieves orders with pagination
func (h *OrderHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "list")

	page, limit, err := parsePagination(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	orders, err := h.repo.List(page, limit)
	if err != nil {
		return respondError(c, log, err)
	}
	total, err := h.repo.Count()
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Orders retrieved successfully",
		zap.Int("count", len(orders)),
		zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"page":        page,
		"limit":       limit,
		"totalOrders": total,
		"totalPages":  totalPages(total, limit),
		"orders":      orders,
	})
}

// Export streams every order as an xlsx attachment
func (h *OrderHandler) Export(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "export")

	defer prometheus.TrackDBOperation("query")(time.Now())

	orders, err := h.repo.ListAll()
	if err != nil {
		return respondError(c, log, err)
	}

	workbook, err := export.OrdersWorkbook(orders)
	if err != nil {
		log.Error("Failed to build orders workbook", zap.Error(err))
		return respondError(c, log, err)
	}
	defer workbook.Close()

	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)

	if _, err := workbook.WriteTo(c.Response()); err != nil {
		log.Error("Failed to write orders workbook", zap.Error(err))
		return err
	}

	log.Info("Orders exported", zap.Int("count", len(orders)))
	return nil
}

// Get retrieves an order by ID
func (h *OrderHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "get")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	order, err := h.repo.GetByID(id)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Update applies a partial patch to an order, re-pricing the lines when the
// patch touches them
func (h *OrderHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "update")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req OrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	input := repository.UpdateOrderInput{
		SupplierID: req.Supplier,
		OrderDate:  req.OrderDate,
		Lines:      requestedLines(req.Items),
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	order, err := h.repo.Update(id, input)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Order updated successfully",
		zap.Uint("id", order.ID),
		zap.String("order_no", order.OrderNo))
	return c.JSON(http.StatusOK, order)
}

// Delete removes an order by ID
func (h *OrderHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "delete")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.repo.Delete(id); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Order deleted successfully", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Order deleted successfully"})
}
