package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageQuery 从 query 读取 page / page_size，非法或缺省值回落到默认值，page_size 上限 MaxPageSize
func PageQuery(c *gin.Context) (int, int) {
	page := queryInt(c, "page")
	pageSize := queryInt(c, "page_size")
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return value
}
