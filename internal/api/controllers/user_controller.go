package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygate/internal/models/db_models"
	"paygate/internal/models/request_models"
	"paygate/internal/models/response_models"
	"paygate/internal/services"
	"paygate/pkg/utils"
)

type UserController struct {
	creditService services.CreditService
}

func NewUserController(creditService services.CreditService) *UserController {
	return &UserController{
		creditService: creditService,
	}
}

func (uc *UserController) RegisterUser(c *gin.Context) {
	var request request_models.RegisterUserRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := uc.creditService.RegisterUser(c.Request.Context(), request.Email)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewUserResponse(user), "User registered")
}

func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.creditService.GetUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewUserResponse(user), "Fetched user")
}

func (uc *UserController) GetBalance(c *gin.Context) {
	balance, err := uc.creditService.GetUserBalance(c.Request.Context(), c.Param("email"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.BalanceResponse{Credits: balance}, "Fetched balance")
}

func (uc *UserController) ConsumeCredits(c *gin.Context) {
	var request request_models.ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Credits) == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	for creditType, amount := range request.Credits {
		if amount < 1 {
			utils.RespondError(c, http.StatusBadRequest, "Credit amount for "+creditType+" must be at least 1")
			return
		}
	}

	remaining, err := uc.creditService.ConsumeCredits(
		c.Request.Context(), c.Param("email"), db_models.CreditMap(request.Credits))
	if err != nil {
		// An insufficiency is a business outcome, not a transport error: the
		// caller gets a 200 with success=false and the reason.
		if errors.Is(err, utils.ErrInsufficientCredits) {
			c.JSON(http.StatusOK, response_models.ConsumeCreditsResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response_models.ConsumeCreditsResponse{
		Success:          true,
		RemainingCredits: remaining,
	})
}
