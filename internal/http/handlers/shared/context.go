package shared

import (
	"github.com/dujiao-next/promo-engine/internal/constants"
	"github.com/dujiao-next/promo-engine/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdminIdentity 当前登录员工
type AdminIdentity struct {
	ID       uint
	Username string
	Email    string
}

// SetCurrentAdmin 由鉴权中间件写入当前员工
func SetCurrentAdmin(c *gin.Context, identity AdminIdentity) {
	c.Set(constants.ContextKeyAdminID, identity.ID)
	c.Set(constants.ContextKeyAdminUsername, identity.Username)
	c.Set(constants.ContextKeyAdminEmail, identity.Email)
}

// CurrentAdmin 读取当前员工；未鉴权时直接返回 401 并返回 false
func CurrentAdmin(c *gin.Context) (AdminIdentity, bool) {
	value, _ := c.Get(constants.ContextKeyAdminID)
	id, ok := value.(uint)
	if !ok || id == 0 {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return AdminIdentity{}, false
	}
	return AdminIdentity{
		ID:       id,
		Username: c.GetString(constants.ContextKeyAdminUsername),
		Email:    c.GetString(constants.ContextKeyAdminEmail),
	}, true
}
