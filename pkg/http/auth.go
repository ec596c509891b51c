package http

import (
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"
	"liyu1981.xyz/smart-farm-service/pkg/auth"
	"liyu1981.xyz/smart-farm-service/pkg/models"
)

type RegisterRequest struct {
	Name     string `json:"name" zog:"name"`
	Email    string `json:"email" zog:"email"`
	Password string `json:"password" zog:"password"`
	Role     string `json:"role" zog:"role"`
}

var registerRequestSchema = z.Struct(z.Shape{
	"Name":     z.String().Trim().Min(1).Required(),
	"Email":    z.String().Trim().Email().Required(),
	"Password": z.String().Min(6).Required(),
	"Role":     z.String().OneOf([]string{string(models.RoleFarmer), string(models.RoleExpert)}),
})

type LoginRequest struct {
	Email    string `json:"email" zog:"email"`
	Password string `json:"password" zog:"password"`
}

var loginRequestSchema = z.Struct(z.Shape{
	"Email":    z.String().Trim().Required(),
	"Password": z.String().Required(),
})

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (rs *RestfulServer) Register(c *gin.Context) {
	var req RegisterRequest
	if err := registerRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	// experts are created by experts unless open expert signup is configured
	if models.Role(req.Role) == models.RoleExpert && !rs.AllowExpertSignup {
		claims, err := rs.Auth.ClaimsFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "expert accounts need an expert token"})
			return
		}
		if !auth.RoleAtLeast(claims.Role, models.RoleExpert) {
			c.JSON(http.StatusForbidden, gin.H{"error": "expert accounts need an expert token"})
			return
		}
	}

	user, err := rs.Iot.User.Register(c.Request.Context(), &models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.Role(req.Role),
	}, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	rs.respondToken(c, http.StatusCreated, user)
}

func (rs *RestfulServer) Login(c *gin.Context) {
	var req LoginRequest
	if err := loginRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	user, err := rs.Iot.User.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	rs.respondToken(c, http.StatusOK, user)
}

func (rs *RestfulServer) respondToken(c *gin.Context, code int, user *models.User) {
	token, err := rs.Auth.IssueToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(code, AuthResponse{Token: token, User: user})
}
