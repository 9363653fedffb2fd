/*
 * @Description: SQL 占位符方言适配
 * @Author: 青陌
 * @Date: 2025-05-12 14:05:18
 * @LastEditTime: 2025-05-12 14:05:25
 * @LastEditors: 青陌
 */
package sqlrepo

import (
	"strconv"
	"strings"
)

// rebind 将 ? 占位符改写为目标方言的形式。
// mysql 和 sqlite 原生使用 ?，postgres 需要 $1..$n。
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// boolToInt 将布尔值转换为 SMALLINT 存储形式
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// isDuplicateErr 判断三种方言的唯一约束冲突。
// 各驱动没有统一的错误类型，只能按报错文本识别：
// sqlite "UNIQUE constraint failed"、mysql "Duplicate entry"、
// postgres "duplicate key value"。
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
