package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}

func boolQuery(c *gin.Context, name string) bool {
	val, err := strconv.ParseBool(c.DefaultQuery(name, "false"))
	return err == nil && val
}

func limitQuery(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > 100 {
		return 100
	}
	return limit
}
