package handler

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"procurement-service/internal/apperr"
	"procurement-service/internal/imagestore"
	"procurement-service/internal/model"
	"procurement-service/internal/repository"
	"procurement-service/pkg/logger"
	"procurement-service/prometheus"
)

// ItemRequest defines the structure for item creation requests. Items are
// created from a multipart form, so every field also carries a form tag.
type ItemRequest struct {
	ItemName          string          `json:"itemName" form:"itemName"`
	InventoryLocation string          `json:"inventoryLocation" form:"inventoryLocation"`
	Brand             string          `json:"brand" form:"brand"`
	Category          string          `json:"category" form:"category"`
	Supplier          uint            `json:"supplier" form:"supplier"`
	StockUnit         string          `json:"stockUnit" form:"stockUnit"`
	UnitPrice         decimal.Decimal `json:"unitPrice" form:"unitPrice"`
	Status            string          `json:"status" form:"status"`
}

// Validate checks the request and names the first failing field.
func (r *ItemRequest) Validate() error {
	if r.ItemName == "" {
		return apperr.Validation("itemName is required")
	}
	if r.Supplier == 0 {
		return apperr.Validation("supplier is required")
	}
	if !model.ValidStockUnit(r.StockUnit) {
		return apperr.Validation("stockUnit must be one of kg, g, liters, pcs")
	}
	if !r.UnitPrice.IsPositive() {
		return apperr.Validation("unitPrice must be a positive number")
	}
	if err := validItemStatus(r.Status); err != nil {
		return err
	}
	return nil
}

// ItemUpdateRequest defines the structure for partial item updates. The item
// number is not patchable and images are only set by the upload path.
type ItemUpdateRequest struct {
	ItemName          *string          `json:"itemName"`
	InventoryLocation *string          `json:"inventoryLocation"`
	Brand             *string          `json:"brand"`
	Category          *string          `json:"category"`
	Supplier          *uint            `json:"supplier"`
	StockUnit         *string          `json:"stockUnit"`
	UnitPrice         *decimal.Decimal `json:"unitPrice"`
	Status            *string          `json:"status"`
}

// Validate checks the provided fields and names the first failing one.
func (r *ItemUpdateRequest) Validate() error {
	if r.ItemName != nil && *r.ItemName == "" {
		return apperr.Validation("itemName must not be empty")
	}
	if r.Supplier != nil && *r.Supplier == 0 {
		return apperr.Validation("supplier must not be empty")
	}
	if r.StockUnit != nil && !model.ValidStockUnit(*r.StockUnit) {
		return apperr.Validation("stockUnit must be one of kg, g, liters, pcs")
	}
	if r.UnitPrice != nil && !r.UnitPrice.IsPositive() {
		return apperr.Validation("unitPrice must be a positive number")
	}
	if r.Status != nil {
		if err := validItemStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

func (r *ItemUpdateRequest) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	if r.ItemName != nil {
		updates["item_name"] = *r.ItemName
	}
	if r.InventoryLocation != nil {
		updates["inventory_location"] = *r.InventoryLocation
	}
	if r.Brand != nil {
		updates["brand"] = *r.Brand
	}
	if r.Category != nil {
		updates["category"] = *r.Category
	}
	if r.Supplier != nil {
		updates["supplier_id"] = *r.Supplier
	}
	if r.StockUnit != nil {
		updates["stock_unit"] = *r.StockUnit
	}
	if r.UnitPrice != nil {
		updates["unit_price"] = *r.UnitPrice
	}
	if r.Status != nil {
		updates["status"] = *r.Status
	}
	return updates
}

func validItemStatus(status string) error {
	switch status {
	case "", model.ItemStatusEnabled, model.ItemStatusDisabled:
		return nil
	default:
		return apperr.Validation("status must be one of Enabled, Disabled")
	}
}

// ItemHandler serves the /items endpoints.
type ItemHandler struct {
	repo   *repository.ItemRepository
	images *imagestore.Store
}

func NewItemHandler(repo *repository.ItemRepository, images *imagestore.Store) *ItemHandler {
	return &ItemHandler{repo: repo, images: images}
}

// Create creates a new item from a multipart form with up to 5 image
// attachments. The item is returned before the images are stored; the image
// list is patched in the background once the upload finishes.
func (h *ItemHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new item")
	prometheus.RecordOperation("item", "create")

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	files, err := itemImageFiles(c)
	if err != nil {
		return respondError(c, log, err)
	}

	item := model.Item{
		ItemName:          req.ItemName,
		InventoryLocation: req.InventoryLocation,
		Brand:             req.Brand,
		Category:          req.Category,
		SupplierID:        req.Supplier,
		StockUnit:         req.StockUnit,
		UnitPrice:         req.UnitPrice,
		Status:            req.Status,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := h.repo.Create(&item); err != nil {
		return respondError(c, log, err)
	}

	if len(files) > 0 {
		go h.storeImages(log, item.ID, files)
	}
	go h.updateActiveGauge()

	log.Info("Item created successfully",
		zap.Uint("id", item.ID),
		zap.String("item_no", item.ItemNo),
		zap.String("name", item.ItemName),
		zap.Int("pending_images", len(files)))
	return c.JSON(http.StatusCreated, item)
}

// List retrieves items with pagination
func (h *ItemHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("item", "list")

	page, limit, err := parsePagination(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	items, err := h.repo.List(page, limit)
	if err != nil {
		return respondError(c, log, err)
	}
	total, err := h.repo.Count()
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Items retrieved successfully",
		zap.Int("count", len(items)),
		zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"page":       page,
		"limit":      limit,
		"totalItems": total,
		"totalPages": totalPages(total, limit),
		"items":      items,
	})
}

// ListActive retrieves the projection of Enabled items used to prefill
// order lines
func (h *ItemHandler) ListActive(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("item", "list_active")

	defer prometheus.TrackDBOperation("query")(time.Now())

	options, err := h.repo.ListActive()
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": options})
}

// Get retrieves an item by ID
func (h *ItemHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("item", "get")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	item, err := h.repo.GetByID(id)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Update applies a partial patch to an item
func (h *ItemHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("item", "update")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req ItemUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return respondError(c, log, apperr.Validation("Invalid request data"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	item, err := h.repo.Update(id, req.updates())
	if err != nil {
		return respondError(c, log, err)
	}

	go h.updateActiveGauge()

	log.Info("Item updated successfully",
		zap.Uint("id", item.ID),
		zap.String("item_no", item.ItemNo))
	return c.JSON(http.StatusOK, item)
}

// Delete removes an item by ID
func (h *ItemHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("item", "delete")

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.repo.Delete(id); err != nil {
		return respondError(c, log, err)
	}

	go h.updateActiveGauge()

	log.Info("Item deleted successfully", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}

// storeImages persists uploaded images and patches the item's image list.
// The creation response has already been sent; failures are logged only.
func (h *ItemHandler) storeImages(log *zap.Logger, itemID uint, files []*multipart.FileHeader) {
	paths, err := h.images.SaveAll(files)
	if err != nil {
		log.Error("Failed to store item images",
			zap.Uint("item_id", itemID),
			zap.Error(err))
		return
	}
	if err := h.repo.SetImages(itemID, paths); err != nil {
		log.Error("Failed to attach item images",
			zap.Uint("item_id", itemID),
			zap.Error(err))
		return
	}
	log.Info("Item images stored",
		zap.Uint("item_id", itemID),
		zap.Int("count", len(paths)))
}

func (h *ItemHandler) updateActiveGauge() {
	count, err := h.repo.CountActive()
	if err != nil {
		return
	}
	prometheus.UpdateActiveItems(count)
}

// itemImageFiles extracts the itemImages attachments from the multipart
// form, if any. A JSON request simply has none.
func itemImageFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File["itemImages"]
	if len(files) > imagestore.MaxImagesPerItem {
		return nil, apperr.Validation("A maximum of %d item images are allowed", imagestore.MaxImagesPerItem)
	}
	return files, nil
}
