/*
 * @Description: 管理端 HTTP 处理器
 * @Author: 青陌
 * @Date: 2025-06-19 10:08:51
 * @LastEditTime: 2025-08-20 09:30:46
 * @LastEditors: 青陌
 */
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qingmo-c/qingtu-app/pkg/response"
	auditservice "github.com/qingmo-c/qingtu-app/pkg/service/audit"
)

// Handler 处理管理端路由
type Handler struct {
	auditSvc *auditservice.Service
}

// NewHandler 创建管理端处理器
func NewHandler(auditSvc *auditservice.Service) *Handler {
	return &Handler{auditSvc: auditSvc}
}

// AuditLogs 返回最近的审计记录
// @Summary 审计日志
// @Router /api/admin/audit [get]
func (h *Handler) AuditLogs(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := h.auditSvc.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "查询审计日志失败")
		return
	}
	response.Success(c, entries, "获取成功")
}
