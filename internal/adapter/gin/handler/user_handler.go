package handler

import (
	"net/http"
	"strconv"
	"strings"

	"traced-user-service/internal/usecase/user"
	pkgerrors "traced-user-service/pkg/errors"
	"traced-user-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.UserUsecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.UserUsecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest collects name and email from the query string or the
// request body. Pointers distinguish an absent field from an empty one.
type CreateUserRequest struct {
	Name  *string `form:"name" json:"name"`
	Email *string `form:"email" json:"email"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.handleError(c, pkgerrors.NewValidationError("query", err.Error()))
		return
	}
	// body values override the query string; -1 is a chunked body
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			h.handleError(c, pkgerrors.NewValidationError("body", err.Error()))
			return
		}
	}

	switch {
	case req.Name == nil:
		h.handleError(c, pkgerrors.NewValidationError("name", "field required"))
		return
	case req.Email == nil:
		h.handleError(c, pkgerrors.NewValidationError("email", "field required"))
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  *req.Name,
		Email: *req.Email,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:    resp.ID,
		Name:  resp.Name,
		Email: resp.Email,
	})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.handleError(c, pkgerrors.NewValidationError("id", "value is not a valid integer"))
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:    resp.ID,
		Name:  resp.Name,
		Email: resp.Email,
	})
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	users := make([]UserResponse, len(resp.Users))
	for i, u := range resp.Users {
		users[i] = UserResponse{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
		}
	}

	c.JSON(http.StatusOK, users)
}

// handleError writes the status and code carried by err. Server-side
// failures are logged in full but only the status text reaches the client.
func (h *UserHandler) handleError(c *gin.Context, err error) {
	status, code := pkgerrors.StatusOf(err)
	log := logger.WithContext(c.Request.Context(), h.log)

	detail := err.Error()
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		detail = strings.ToLower(http.StatusText(status))
	default:
		log.Info("request rejected",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("reason", detail),
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:  code,
		Detail: detail,
	})
}
