package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/domain"
	cartsvc "tanglewood-gallery/internal/service/cart"
)

type updateQuantityRequest struct {
	cartsvc.KeyInput
	Quantity *int `json:"quantity"`
}

type destinationRequest struct {
	Country string `json:"country"`
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domain.Invalidf("invalid request body")
	}
	return nil
}

func (h *handlers) respondCart(c *gin.Context, snap cartstore.Snapshot, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartView(snap))
}

func (h *handlers) getCart(c *gin.Context) {
	snap, err := h.carts.Get(c.Request.Context(), sessionID(c))
	h.respondCart(c, snap, err)
}

func (h *handlers) addItem(c *gin.Context) {
	var req cartsvc.AddInput
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := h.carts.AddItem(c.Request.Context(), sessionID(c), req)
	h.respondCart(c, snap, err)
}

func (h *handlers) updateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(c, domain.Invalidf("quantity required"))
		return
	}
	snap, err := h.carts.UpdateQuantity(c.Request.Context(), sessionID(c), req.KeyInput, *req.Quantity)
	h.respondCart(c, snap, err)
}

func (h *handlers) removeItem(c *gin.Context) {
	var req cartsvc.KeyInput
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := h.carts.RemoveItem(c.Request.Context(), sessionID(c), req)
	h.respondCart(c, snap, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	snap, err := h.carts.Clear(c.Request.Context(), sessionID(c))
	h.respondCart(c, snap, err)
}

func (h *handlers) openCart(c *gin.Context) {
	snap, err := h.carts.Open(c.Request.Context(), sessionID(c))
	h.respondCart(c, snap, err)
}

func (h *handlers) closeCart(c *gin.Context) {
	snap, err := h.carts.Close(c.Request.Context(), sessionID(c))
	h.respondCart(c, snap, err)
}

func (h *handlers) toggleCart(c *gin.Context) {
	snap, err := h.carts.Toggle(c.Request.Context(), sessionID(c))
	h.respondCart(c, snap, err)
}

func (h *handlers) setDestination(c *gin.Context) {
	var req destinationRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := h.carts.SetDestination(c.Request.Context(), sessionID(c), req.Country)
	h.respondCart(c, snap, err)
}
