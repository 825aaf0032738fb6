package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/errors"
	"github.com/ranlab/bizdir-backend/internal/middleware"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

func (ctrl *UserController) List(c *gin.Context) {
	page, err1 := strconv.Atoi(c.DefaultQuery("page", "0"))
	perPage, err2 := strconv.Atoi(c.DefaultQuery("perPage", "0"))
	if err1 != nil || err2 != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "page and perPage must be integers")
		return
	}

	users, err := ctrl.userService.List(c.Request.Context(), middleware.GetIdentity(c), page, perPage)
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"users":  users,
		"count":  len(users),
	})
}

func (ctrl *UserController) Get(c *gin.Context) {
	user, err := ctrl.userService.Get(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"))
	if err != nil {
		respondServiceError(c, err, "fetch user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"user":   user,
	})
}

func (ctrl *UserController) Update(c *gin.Context) {
	var patch model.UserPatch
	if !bindJSON(c, &patch) {
		return
	}

	user, err := ctrl.userService.Update(c.Request.Context(), middleware.GetIdentity(c), c.Param("userId"), patch)
	if err != nil {
		respondServiceError(c, err, "update user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"user":   user,
	})
}
