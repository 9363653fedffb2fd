/*
 * @Description: 图片资源 HTTP 处理器
 * @Author: 青陌
 * @Date: 2025-06-18 09:40:22
 * @LastEditTime: 2025-09-28 16:32:40
 * @LastEditors: 青陌
 */
package image

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qingmo-c/qingtu-app/internal/app/middleware"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
	"github.com/qingmo-c/qingtu-app/pkg/response"
	imageservice "github.com/qingmo-c/qingtu-app/pkg/service/image"
	"github.com/qingmo-c/qingtu-app/pkg/service/transform"
)

// Options 是处理器的静态配置
type Options struct {
	MaxSizeBytes      int64
	GuestMaxSizeBytes int64
	EnableGuest       bool
	GuestUserID       uint
}

// Handler 处理图片相关的全部路由
type Handler struct {
	svc  *imageservice.Service
	opts Options
}

// NewHandler 创建图片处理器
func NewHandler(svc *imageservice.Service, opts Options) *Handler {
	return &Handler{svc: svc, opts: opts}
}

// respondError 把业务错误翻译为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, constant.ErrNotFound):
		response.Fail(c, http.StatusNotFound, "资源不存在")
	case errors.Is(err, constant.ErrForbidden):
		response.Fail(c, http.StatusForbidden, "没有权限执行此操作")
	case errors.Is(err, constant.ErrInvalidType):
		response.Fail(c, http.StatusBadRequest, "不支持的文件格式")
	case errors.Is(err, constant.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, "文件超过大小限制")
	case errors.Is(err, constant.ErrGuestUploadDisabled):
		response.Fail(c, http.StatusForbidden, "访客上传已关闭")
	case errors.Is(err, constant.ErrBadRequest):
		response.Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, constant.ErrUnauthorized), errors.Is(err, constant.ErrInvalidToken):
		response.Fail(c, http.StatusUnauthorized, "认证失败")
	default:
		response.Fail(c, http.StatusInternalServerError, "服务器内部错误")
	}
}

// Upload 处理登录用户上传
// @Summary 上传图片
// @Router /api/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "认证失败")
		return
	}

	h.handleUpload(c, userID, false, model.NewAuthenticatedProfile(h.opts.MaxSizeBytes))
}

// GuestUpload 处理匿名访客上传
// @Summary 访客上传图片
// @Router /api/upload/guest [post]
func (h *Handler) GuestUpload(c *gin.Context) {
	if !h.opts.EnableGuest {
		respondError(c, constant.ErrGuestUploadDisabled)
		return
	}

	h.handleUpload(c, h.opts.GuestUserID, true, model.NewGuestProfile(h.opts.GuestMaxSizeBytes))
}

func (h *Handler) handleUpload(c *gin.Context, ownerID uint, guest bool, profile *model.UploadProfile) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "请求中缺少 file 字段")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "无法读取上传文件")
		return
	}
	defer file.Close()

	isPublic := true
	if v := c.PostForm("isPublic"); v != "" {
		isPublic = v == "true" || v == "1"
	}
	// 访客上传固定公开，匿名资产没有可校验的拥有者
	if guest {
		isPublic = true
	}

	result, err := h.svc.Upload(c.Request.Context(), &model.UploadInput{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Reader:   file,
		OwnerID:  ownerID,
		IsPublic: isPublic,
		Guest:    guest,
		ClientIP: middleware.GetClientIP(c),
	}, profile)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result, "上传成功")
}

// Deliver 交付图片内容，支持 w/h/q 动态变换和 download 附件下载
// @Summary 获取图片内容
// @Router /api/image/{id} [get]
func (h *Handler) Deliver(c *gin.Context) {
	viewerID, role, _ := middleware.CurrentUser(c)

	width, errW := queryInt(c, "w")
	height, errH := queryInt(c, "h")
	quality, errQ := queryInt(c, "q")
	if errW != nil || errH != nil || errQ != nil {
		response.Fail(c, http.StatusBadRequest, "变换参数 w/h/q 必须是整数")
		return
	}

	opts := imageservice.DeliverOptions{
		Transform: transform.Options{
			Width:   width,
			Height:  height,
			Quality: quality,
		},
		Download:    c.Query("download") == "true" || c.Query("download") == "1",
		IfNoneMatch: c.GetHeader("If-None-Match"),
		ViewerID:    viewerID,
		ViewerAdmin: role == model.RoleAdmin,
	}

	result, err := h.svc.Deliver(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("ETag", result.ETag)
	c.Header("Cache-Control", result.CacheControl)

	if result.NotModified {
		c.Status(http.StatusNotModified)
		return
	}

	if opts.Download {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	}

	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Info 返回图片元信息
// @Summary 获取图片元信息
// @Router /api/image/{id}/info [get]
func (h *Handler) Info(c *gin.Context) {
	viewerID, role, _ := middleware.CurrentUser(c)

	img, err := h.svc.Info(c.Request.Context(), c.Param("id"), viewerID, role == model.RoleAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, img, "获取成功")
}

// List 分页列出图片。普通用户只能看自己的，管理员加 all=true 可以看全部。
// @Summary 图片列表
// @Router /api/images [get]
func (h *Handler) List(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "认证失败")
		return
	}

	page, errPage := queryInt(c, "page")
	pageSize, errSize := queryInt(c, "pageSize")
	if errPage != nil || errSize != nil {
		response.Fail(c, http.StatusBadRequest, "分页参数必须是整数")
		return
	}

	opts := repository.ImageQueryOptions{
		PageQuery: repository.PageQuery{
			Page:     page,
			PageSize: pageSize,
		},
		Format: c.Query("format"),
	}

	if role == model.RoleAdmin && c.Query("all") == "true" {
		// 管理员全量视图
	} else {
		opts.OwnerID = &userID
	}

	result, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}

// Update 更新图片元信息
// @Summary 更新图片元信息
// @Router /api/image/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "认证失败")
		return
	}

	var req model.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	img, err := h.svc.UpdateMeta(c.Request.Context(), c.Param("id"), &req,
		userID, role == model.RoleAdmin, middleware.GetClientIP(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, img, "更新成功")
}

// Delete 删除图片
// @Summary 删除图片
// @Router /api/image/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "认证失败")
		return
	}

	if err := h.svc.Remove(c.Request.Context(), c.Param("id"),
		userID, role == model.RoleAdmin, middleware.GetClientIP(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}

// queryInt 解析查询参数为整数。缺失返回 0，非法值返回错误而非静默忽略。
func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("参数 %s 的值 %q 不是整数", key, v)
	}
	return n, nil
}
