/*
 * @Description:
 * @Author: 青陌
 * @Date: 2025-04-14 11:05:12
 * @LastEditTime: 2025-04-14 11:05:20
 * @LastEditors: 青陌
 */
package repository

// PageQuery 包含了所有列表查询都通用的分页参数。
// 任何需要分页的查询选项结构体都可以嵌入它。
type PageQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"pageSize" json:"pageSize"`
}

// Normalize 将越界的分页参数收敛到合法区间。
func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
}

// PageResult 包含了所有分页查询返回的通用结构。
type PageResult[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
}
