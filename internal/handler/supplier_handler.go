package handler

import (
	"net/http"
	"net/mail"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"procurement-service/internal/apperr"
	"procurement-service/internal/model"
	"procurement-service/internal/repository"
	"procurement-service/pkg/logger"
	"procurement-service/prometheus"
)

var mobileNoPattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// SupplierRequest defines the structure for supplier creation requests
type SupplierRequest struct {
	SupplierName string `json:"supplierName"`
	Address      string `json:"address"`
	TaxNo        string `json:"taxNo"`
	Country      string `json:"country"`
	MobileNo     string `json:"mobileNo"`
	Email        string `json:"email"`
	Status       string `json:"status"`
}

// Validate checks the request and names the first failing field.
func (r *SupplierRequest) Validate() error {
	if r.SupplierName == "" {
		return apperr.Validation("supplierName is required")
	}
	if r.Country == "" {
		return apperr.Validation("country is required")
	}
	if !mobileNoPattern.MatchString(r.MobileNo) {
		return apperr.Validation("mobileNo must be 10 to 15 digits")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Validation("email must be a valid email address")
	}
	if err := validSupplierStatus(r.Status); err != nil {
		return err
	}
	return nil
}

// SupplierUpdateRequest defines the structure for partial supplier updates.
// The supplier number is not patchable.
type SupplierUpdateRequest struct {
	SupplierName *string `json:"supplierName"`
	Address      *string `json:"address"`
	TaxNo        *string `json:"taxNo"`
	Country      *string `json:"country"`
	MobileNo     *string `json:"mobileNo"`
	Email        *string `json:"email"`
	Status       *string `json:"status"`
}

// Validate checks the provided fields and names the first failing one.
func (r *SupplierUpdateRequest) Validate() error {
	if r.SupplierName != nil && *r.SupplierName == "" {
		return apperr.Validation("supplierName must not be empty")
	}
	if r.Country != nil && *r.Country == "" {
		return apperr.Validation("country must not be empty")
	}
	if r.MobileNo != nil && !mobileNoPattern.MatchString(*r.MobileNo) {
		return apperr.Validation("mobileNo must be 10 to 15 digits")
	}
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			return apperr.Validation("email must be a valid email address")
		}
	}
	if r.Status != nil {
		if err := validSupplierStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

func (r *SupplierUpdateRequest) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	if r.SupplierName != nil {
		updates["supplier_name"] = *r.SupplierName
	}
	if r.Address != nil {
		updates["address"] = *r.Address
	}
	if r.TaxNo != nil {
		updates["tax_no"] = *r.TaxNo
	}
	if r.Country != nil {
		updates["country"] = *r.Country
	}
	if r.MobileNo != nil {
		updates["mobile_no"] = *r.MobileNo
	}
	if r.Email != nil {
		updates["email"] = *r.Email
	}
	if r.Status != nil {
		updates["status"] = *r.Status
	}
	return updates
}

func validSupplierStatus(status string) error {
	switch status {
	case "", model.SupplierStatusActive, model.SupplierStatusInactive, model.SupplierStatusBlocked:
		return nil
	default:
		return apperr.Validation("status must be one of Active, Inactive, Blocked")
	}
}

// SupplierHandler serves the /suppliers endpoints.
type SupplierHandler struct {
	repo *repository.SupplierRepository
}

func NewSupplierHandler(repo *repository.SupplierRepository) *SupplierHandler {
	return &SupplierHandler{repo: repo}
}

// Create creates a new supplier and assigns its supplier number
func (h *SupplierHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new supplier")
	prometheus.RecordOperation("supplier", "create")

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	supplier := model.Supplier{
		SupplierName: req.SupplierName,
		Address:      req.Address,
		TaxNo:        req.TaxNo,
		Country:      req.Country,
		MobileNo:     req.MobileNo,
		Email:        req.Email,
		Status:       req.Status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := h.repo.Create(&supplier); err != nil {
		return respondError(c, log, err)
	}

	go h.updateActiveGauge()

	log.Info("Supplier created successfully",
		zap.Uint("id", supplier.ID),
		zap.String("supplier_no", supplier.SupplierNo),
		zap.String("name", supplier.SupplierName))
	return c.JSON(http.StatusCreated, supplier)
}

// List retrieves suppliers with pagination
func (h *SupplierHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "list")

	page, limit, err := parsePagination(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	suppliers, err := h.repo.List(page, limit)
	if err != nil {
		return respondError(c, log, err)
	}
	total, err := h.repo.Count()
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Suppliers retrieved successfully",
		zap.Int("count", len(suppliers)),
		zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"page":           page,
		"limit":          limit,
		"totalSuppliers": total,
		"totalPages":     totalPages(total, limit),
		"suppliers":      suppliers,
	})
}

// ListActive retrieves the minimal projection of Active suppliers for
// selection widgets
func (h *SupplierHandler) ListActive(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "list_active")

	defer prometheus.TrackDBOperation("query")(time.Now())

	options, err := h.repo.ListActive()
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"suppliers": options})
}

// Get retrieves a supplier by ID
func (h *SupplierHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "get")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	supplier, err := h.repo.GetByID(id)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// Update applies a partial patch to a supplier
func (h *SupplierHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "update")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req SupplierUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	supplier, err := h.repo.Update(id, req.updates())
	if err != nil {
		return respondError(c, log, err)
	}

	go h.updateActiveGauge()

	log.Info("Supplier updated successfully",
		zap.Uint("id", supplier.ID),
		zap.String("supplier_no", supplier.SupplierNo))
	return c.JSON(http.StatusOK, supplier)
}

// Delete removes a supplier by ID
func (h *SupplierHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "delete")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.repo.Delete(id); err != nil {
		return respondError(c, log, err)
	}

	go h.updateActiveGauge()

	log.Info("Supplier deleted successfully", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Supplier deleted successfully"})
}

func (h *SupplierHandler) updateActiveGauge() {
	count, err := h.repo.CountActive()
	if err != nil {
		return
	}
	prometheus.UpdateActiveSuppliers(count)
}
