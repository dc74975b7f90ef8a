package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tanglewood-gallery/internal/service/checkout"
)

func (h *handlers) startCheckout(c *gin.Context) {
	var req checkout.CustomerInfo
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.checkout.Start(c.Request.Context(), sessionID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) completeOrder(c *gin.Context) {
	order, err := h.checkout.Complete(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(*order))
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.checkout.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(*order))
}
