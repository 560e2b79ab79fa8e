package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/account"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
)

type AccountHandler struct {
	accountUseCase account.AccountUseCase
	jwtUtil        *auth.JWTUtil
}

func NewAccountHandler(AccountUseCase account.AccountUseCase, JWTUtil *auth.JWTUtil) *AccountHandler {
	return &AccountHandler{AccountUseCase, JWTUtil}
}

// HandleProvision register the token's account with the course
func (ah *AccountHandler) HandleProvision(c echo.Context) error {
	claims := ah.jwtUtil.GetContextToken(c)

	acc, err := ah.accountUseCase.Provision(c.Request().Context(), claims.UID, claims.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}
