package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/shopcore/pkg/models"
	"github.com/example/shopcore/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	UserID *int64                `json:"userId"`
	Items  []models.NewOrderItem `json:"items"`
}

type payOrderRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Provider string           `json:"provider"`
}

type createReviewRequest struct {
	ProductID *int64   `json:"productId"`
	Rating    *float64 `json:"rating"`
	Comment   string   `json:"comment"`
	OrderID   *int64   `json:"orderId"`
}

type stepDownRequest struct {
	Seconds *int `json:"seconds"`
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// health godoc
// @Summary  Probe MySQL then MongoDB; the first failure fails the check
// @Router   /health [get]
func (g *Gateway) health(c *gin.Context) {
	h, err := g.shop.Health(c.Request.Context())
	if err != nil {
		g.failInternal(c, err)
		return
	}
	ok(c, h)
}

// createOrder godoc
// @Summary  Create a PENDING order; the total is computed from the items
// @Router   /orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := g.shop.CreateOrder(c.Request.Context(), deref(req.UserID), req.Items)
	if err != nil {
		g.fail(c, err)
		return
	}

	ok(c, gin.H{
		"orderId": order.ID,
		"total":   order.TotalAmount.InexactFloat64(),
	})
}

// getOrder godoc
// @Summary  Order with its items and payments
// @Router   /orders/{id} [get]
func (g *Gateway) getOrder(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		bad(c, http.StatusNotFound, "Order not found")
		return
	}

	order, err := g.shop.GetOrder(c.Request.Context(), id)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, order)
}

// payOrder godoc
// @Summary  Record a successful payment and mark the order PAID
// @Router   /orders/{id}/pay [post]
func (g *Gateway) payOrder(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		bad(c, http.StatusNotFound, "Order not found")
		return
	}

	var req payOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		bad(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if _, err := g.shop.PayOrder(c.Request.Context(), id, req.Amount, req.Provider); err != nil {
		g.fail(c, err)
		return
	}

	ok(c, gin.H{
		"orderId": id,
		"state":   models.OrderStatusPaid,
	})
}

// createReview godoc
// @Summary  Store a review; a referenced order must be PAID
// @Router   /reviews [post]
func (g *Gateway) createReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bad(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := g.shop.CreateReview(c.Request.Context(), service.ReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		OrderID:   req.OrderID,
	})
	if err != nil {
		g.fail(c, err)
		return
	}

	ok(c, gin.H{"insertedId": id.Hex()})
}

// productSummary godoc
// @Summary  Paid units sold and review stats for a product
// @Param    read_from  query  string  false  "primary or secondary"
// @Router   /products/{id}/summary [get]
func (g *Gateway) productSummary(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		bad(c, http.StatusNotFound, "Product not found")
		return
	}

	rp := models.ParseReadPreference(c.Query("read_from"))
	summary, err := g.shop.ProductSummary(c.Request.Context(), id, rp)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, summary)
}

// productReviews godoc
// @Summary  Reviews of a product, newest first
// @Param    read_from  query  string  false  "primary or secondary"
// @Param    limit      query  int     false  "max reviews"
// @Router   /products/{id}/reviews [get]
func (g *Gateway) productReviews(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		bad(c, http.StatusNotFound, "Product not found")
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(service.DefaultReviewLimit)), 10, 64)
	if err != nil || limit <= 0 {
		bad(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	rp := models.ParseReadPreference(c.Query("read_from"))
	reviews, err := g.shop.ProductReviews(c.Request.Context(), id, rp, limit)
	if err != nil {
		g.fail(c, err)
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	ok(c, gin.H{
		"productId":     id,
		"reviews":       reviews,
		"mongoReadFrom": rp.String(),
	})
}

// stepDown godoc
// @Summary  Force the MongoDB primary to step down (failover testing)
// @Router   /admin/stepdown [post]
func (g *Gateway) stepDown(c *gin.Context) {
	var req stepDownRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		bad(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	seconds := 0
	if req.Seconds != nil {
		seconds = *req.Seconds
	}

	secs, err := g.shop.StepDown(c.Request.Context(), seconds)
	if err != nil {
		g.failInternal(c, err)
		return
	}
	ok(c, gin.H{"steppingDown": secs})
}
