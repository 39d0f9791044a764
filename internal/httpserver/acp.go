package httpserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	checkoutsvc "github.com/ynachiket/acp-checkout-poc/internal/service/checkout"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type acpHandlers struct {
	checkout checkoutService
	products productService
	orders   orderService
	links    Links
	logger   *log.Logger
}

type lineItemRequest struct {
	GTIN      string `json:"gtin"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createSessionRequest struct {
	LineItems          []lineItemRequest `json:"line_items"`
	FulfillmentAddress *domain.Address   `json:"fulfillment_address"`
	BuyerInfo          *domain.BuyerInfo `json:"buyer_info"`
}

type updateSessionRequest struct {
	FulfillmentAddress          *domain.Address `json:"fulfillment_address"`
	SelectedFulfillmentOptionID string          `json:"selected_fulfillment_option_id"`
}

type completeSessionRequest struct {
	PaymentTokenID string `json:"payment_token_id"`
}

type orderStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
}

func (h *acpHandlers) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	in := checkoutsvc.CreateInput{Address: req.FulfillmentAddress, BuyerInfo: req.BuyerInfo}
	for _, item := range req.LineItems {
		in.Items = append(in.Items, checkoutsvc.ItemInput{ProductID: item.ProductID, GTIN: item.GTIN, Quantity: item.Quantity})
	}

	cs, err := h.checkout.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(cs, h.links))
}

func (h *acpHandlers) updateSession(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	cs, err := h.checkout.Update(c.Request.Context(), c.Param("id"), checkoutsvc.UpdateInput{
		Address:             req.FulfillmentAddress,
		FulfillmentOptionID: req.SelectedFulfillmentOptionID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(cs, h.links))
}

func (h *acpHandlers) getSession(c *gin.Context) {
	cs, err := h.checkout.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(cs, h.links))
}

func (h *acpHandlers) completeSession(c *gin.Context) {
	var req completeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	res, err := h.checkout.Complete(c.Request.Context(), c.Param("id"), req.PaymentTokenID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toCompleteResponse(res.Session, res.Order))
}

func (h *acpHandlers) cancelSession(c *gin.Context) {
	cs, err := h.checkout.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cancelResponse{ID: cs.ID, Status: cs.Status, UpdatedAt: cs.UpdatedAt})
}

func (h *acpHandlers) delegatePayment(c *gin.Context) {
	var card payment.CardDetails
	if err := c.ShouldBindJSON(&card); err != nil {
		badJSON(c)
		return
	}

	token, err := h.checkout.DelegatePayment(c.Request.Context(), card)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, delegateResponse{PaymentTokenID: token})
}

func (h *acpHandlers) searchProducts(c *gin.Context) {
	in := productsvc.SearchInput{
		Query:        c.Query("query"),
		Category:     c.Query("category"),
		Availability: c.Query("availability"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, h.logger, domain.Errorf(domain.ErrInvalidInput, "limit must be an integer, got %q", raw))
			return
		}
		in.Limit = n
	}
	for param, dst := range map[string]**domain.Amount{"price_min": &in.PriceMin, "price_max": &in.PriceMax} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		amt, err := domain.NewAmount(raw)
		if err != nil {
			writeError(c, h.logger, domain.Errorf(domain.ErrInvalidInput, "%s must be a decimal, got %q", param, raw))
			return
		}
		*dst = &amt
	}

	products, err := h.products.Search(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, productListResponse{Products: products, Count: len(products)})
}

func (h *acpHandlers) getProduct(c *gin.Context) {
	p, err := h.products.GetByGTIN(c.Request.Context(), c.Param("gtin"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *acpHandlers) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *acpHandlers) orderEvents(c *gin.Context) {
	events, err := h.orders.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orderEventsResponse{OrderID: c.Param("id"), Events: events})
}

func (h *acpHandlers) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if req.Status == "" {
		writeError(c, h.logger, domain.Errorf(domain.ErrInvalidInput, "status is required"))
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.TrackingNumber)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
