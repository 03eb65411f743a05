package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygate/internal/gateways"
	"paygate/internal/models/request_models"
	"paygate/internal/services"
	"paygate/pkg/utils"
)

type CheckoutController struct {
	checkoutService services.CheckoutService
}

func NewCheckoutController(checkoutService services.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

func (cc *CheckoutController) Purchase(c *gin.Context) {
	var request request_models.PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := cc.checkoutService.Purchase(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Payment intent created")
}

func (cc *CheckoutController) GetTransaction(c *gin.Context) {
	resp, err := cc.checkoutService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Fetched transaction")
}

func (cc *CheckoutController) ListUserTransactions(c *gin.Context) {
	txns, err := cc.checkoutService.ListUserTransactions(c.Request.Context(), c.Param("email"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, txns, "Fetched transactions")
}

func (cc *CheckoutController) TransactionStats(c *gin.Context) {
	stats, err := cc.checkoutService.TransactionStats(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stats, "Fetched transaction stats")
}

func (cc *CheckoutController) RefundTransaction(c *gin.Context) {
	var request request_models.RefundRequest
	if err := c.ShouldBindJSON(&request); err != nil && err != io.EOF {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := cc.checkoutService.RefundTransaction(c.Request.Context(), c.Param("id"), request.Reason)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, "Refund processed")
}

// HandleWebhook acknowledges every verifiable outcome with 200 so providers
// stop redelivering events a retry cannot fix; only transient processing
// failures answer 500 to invite another delivery.
func (cc *CheckoutController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result := cc.checkoutService.HandleWebhook(
		c.Request.Context(),
		c.Param("gateway"),
		payload,
		c.GetHeader("Stripe-Signature"),
	)

	code := http.StatusOK
	if result.Status == gateways.WebhookFailed && result.Retryable {
		code = http.StatusInternalServerError
	}

	c.JSON(code, gin.H{
		"received": result.Status == gateways.WebhookSuccess,
		"message":  result.Message,
	})
}

func (cc *CheckoutController) ListGateways(c *gin.Context) {
	utils.RespondSuccess(c, gin.H{"available": cc.checkoutService.AvailableGateways()}, "Fetched available gateways")
}

func (cc *CheckoutController) ListPackages(c *gin.Context) {
	pkgs, err := cc.checkoutService.ListPackages(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, pkgs, "Fetched packages")
}
