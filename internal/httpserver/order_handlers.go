package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	orderrepo "shopora/internal/repository/order"
	ordersvc "shopora/internal/service/order"
)

type orderHandlers struct {
	orders         *ordersvc.Service
	paypalClientID string
	dev            bool
}

func (h *orderHandlers) create(c *gin.Context) {
	var in ordersvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.Create(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *orderHandlers) get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"), callerID(c), callerIsAdmin(c))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandlers) listMine(c *gin.Context) {
	orders, err := h.orders.ListForUser(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *orderHandlers) listAll(c *gin.Context) {
	filter := orderrepo.ListAllFilter{
		PaymentStatus: c.Query("paymentStatus"),
		EmailSearch:   c.Query("q"),
		Delivery:      c.Query("delivery"),
		Sort:          c.Query("sort"),
		Page:          intQuery(c, "page", 1),
		Limit:         intQuery(c, "limit", 20),
	}
	var err error
	if filter.StartDate, err = dateQuery(c, "start"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	if filter.EndDate, err = dateQuery(c, "end"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}

	orders, total, err := h.orders.ListAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (h *orderHandlers) createIntent(c *gin.Context) {
	intentID, order, err := h.orders.CreateIntent(c.Request.Context(), c.Param("id"), callerID(c), callerIsAdmin(c))
	recordSettlement("create_intent", err)
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paypalOrderId": intentID, "order": order})
}

func (h *orderHandlers) captureIntent(c *gin.Context) {
	var body struct {
		PayPalOrderID string `json:"orderID"`
	}
	// Body is optional; the stored intent id is the fallback.
	_ = c.ShouldBindJSON(&body)

	order, err := h.orders.CaptureIntent(c.Request.Context(), c.Param("id"), callerID(c), callerIsAdmin(c), body.PayPalOrderID)
	recordSettlement("capture", err)
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandlers) markPaymentStatus(c *gin.Context) {
	order, err := h.orders.MarkPaymentStatus(c.Request.Context(), c.Param("id"), c.Param("paymentStatus"))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandlers) advanceDelivery(c *gin.Context) {
	order, err := h.orders.AdvanceDelivery(c.Request.Context(), c.Param("id"), c.Param("status"))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandlers) paypalConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clientId": h.paypalClientID})
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, strconv.ErrSyntax
}
