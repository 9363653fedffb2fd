/*
 * @Description: 图片处理器参数解析测试
 * @Author: 青陌
 * @Date: 2025-09-28 17:05:13
 * @LastEditTime: 2025-09-28 17:05:13
 * @LastEditors: 青陌
 */
package image

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    int
		wantErr bool
	}{
		{"缺失参数返回零值", "/api/image/x", 0, false},
		{"合法整数正常解析", "/api/image/x?w=200", 200, false},
		{"非数字值返回错误", "/api/image/x?w=abc", 0, true},
		{"小数值返回错误", "/api/image/x?w=1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(t, tt.target)
			got, err := queryInt(c, "w")
			if (err != nil) != tt.wantErr {
				t.Fatalf("queryInt 错误期望 %v, 得到 %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Fatalf("queryInt 期望 %d, 得到 %d", tt.want, got)
			}
		})
	}
}

func TestDeliverRejectsBadTransformParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"非数字宽度", "/api/image/x?w=abc"},
		{"非数字高度", "/api/image/x?h=xyz"},
		{"非数字质量", "/api/image/x?q=high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(t, tt.target)
			// 参数校验在触达服务层之前完成
			NewHandler(nil, Options{}).Deliver(c)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("期望状态码 400, 得到 %d", w.Code)
			}
		})
	}
}
