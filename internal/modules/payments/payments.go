// Package payments creates checkout orders against the backend and hands the
// browser the options blob the hosted checkout widget is opened with.
package payments

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherly/web/internal/config"
	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
)

// CheckoutOptions is the configuration the checkout widget expects. Field
// names follow the widget's own API.
type CheckoutOptions struct {
	Key         string  `json:"key"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	CallbackURL string  `json:"callback_url"`
	Prefill     struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"prefill"`
	Theme struct {
		Color string `json:"color"`
	} `json:"theme"`
}

type Handler struct {
	api      *upstream.Client
	sessions *session.Store
	checkout config.CheckoutConfig
}

func NewHandler(api *upstream.Client, sessions *session.Store, checkout config.CheckoutConfig) *Handler {
	return &Handler{api: api, sessions: sessions, checkout: checkout}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/payments")
	g.POST("/order", h.createOrder)
	g.GET("/checkout-options", h.checkoutOptions)
}

// checkoutOptions returns the widget configuration without an order attached,
// so the event page can prime the checkout before the buyer commits.
func (h *Handler) checkoutOptions(c *gin.Context) {
	if !middleware.HasAccessToken(c) {
		response.Unauthorized(c, "Please login to continue")
		return
	}

	opts := h.baseOptions()
	if sess, err := h.sessions.Get(c.Request.Context(), middleware.ClientKeyFrom(c)); err == nil && sess.User != nil {
		opts.Prefill.Name = sess.User.Name
		opts.Prefill.Email = sess.User.Email
	}
	response.OK(c, "", gin.H{"checkoutOptions": opts})
}

func (h *Handler) baseOptions() CheckoutOptions {
	opts := CheckoutOptions{
		Key:         h.checkout.KeyID,
		Currency:    h.checkout.Currency,
		Name:        "Gatherly",
		Description: "Gatherly ticket purchase",
		CallbackURL: h.checkout.CallbackURL,
	}
	opts.Theme.Color = h.checkout.ThemeColor
	return opts
}

func (h *Handler) createOrder(c *gin.Context) {
	var dto upstream.OrderInput
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "Invalid order details")
		return
	}
	if dto.Currency == "" {
		dto.Currency = h.checkout.Currency
	}

	ctx := c.Request.Context()
	order, err := h.api.CreateOrder(ctx, middleware.AccessTokenFrom(c), dto)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}

	opts := h.baseOptions()
	opts.Amount = order.Amount
	opts.Currency = order.Currency
	opts.OrderID = order.ID
	if sess, err := h.sessions.Get(ctx, middleware.ClientKeyFrom(c)); err == nil && sess.User != nil {
		opts.Prefill.Name = sess.User.Name
		opts.Prefill.Email = sess.User.Email
	}

	response.Created(c, "Order created", gin.H{
		"order":           order,
		"checkoutOptions": opts,
	})
}
