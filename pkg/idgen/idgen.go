/*
 * @Description: ID 生成和解码服务
 * @Author: 青陌
 * @Date: 2025-03-02 14:21:40
 * @LastEditTime: 2025-09-20 22:18:33
 * @LastEditors: 青陌
 */
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/sqids/sqids-go"
)

// sqidsEncoder 是用于生成和解码用户公共 ID 的 Sqids 编码器实例。
var sqidsEncoder *sqids.Sqids

// DefaultAlphabet 是默认的字母表
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ImageIDLength 是图片公共 ID 的固定长度。
// 62 个字符的字母表下，21 个字符约等于 125 bit 的随机熵，
// 在千万级资产规模下碰撞概率可以忽略不计。
const ImageIDLength = 21

// EntityType 定义了不同实体在生成公共 ID 时的类型标识。
const (
	EntityTypeUser uint64 = 1 // 用户实体的类型标识
)

// InitSqidsEncoder 初始化 Sqids 编码器。
func InitSqidsEncoder() error {
	s, err := sqids.New(
		sqids.Options{
			MinLength: 4,
			Alphabet:  DefaultAlphabet,
		},
	)
	if err != nil {
		return fmt.Errorf("初始化 Sqids 编码器失败: %w", err)
	}
	sqidsEncoder = s
	return nil
}

// NewImageID 生成一个图片资产的公共 ID。
// ID 是纯随机的 URL 安全短标记，不编码任何内部信息；
// 熵来自 crypto/rand，若熵源不可用则直接返回错误（调用方应视为致命故障）。
func NewImageID() (string, error) {
	return randomToken(ImageIDLength)
}

// randomToken 用拒绝采样从字母表中均匀抽取 length 个字符。
// 字母表共 62 个字符，掩码取低 6 位（0-63），落在 62 之外的字节丢弃重采，
// 保证每个字符的分布是严格均匀的。
func randomToken(length int) (string, error) {
	const mask = 0x3f
	token := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(token) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("读取系统熵源失败: %w", err)
		}
		for _, b := range buf {
			idx := int(b & mask)
			if idx >= len(DefaultAlphabet) {
				continue
			}
			token = append(token, DefaultAlphabet[idx])
			if len(token) == length {
				break
			}
		}
	}
	return string(token), nil
}

// GeneratePublicID 将数据库数字 ID 编码为对外暴露的公共 ID。
// 仅用于用户等协作方实体；图片资产使用 NewImageID 生成的随机标记。
func GeneratePublicID(dbID uint, entityType uint64) (string, error) {
	if sqidsEncoder == nil {
		return "", fmt.Errorf("Sqids 编码器未初始化")
	}

	id, err := sqidsEncoder.Encode([]uint64{uint64(dbID), entityType})
	if err != nil {
		return "", fmt.Errorf("编码公共ID失败: %w", err)
	}
	return id, nil
}

// DecodePublicID 解码公共 ID
func DecodePublicID(publicID string) (dbID uint, entityType uint64, err error) {
	if sqidsEncoder == nil {
		return 0, 0, fmt.Errorf("Sqids 编码器未初始化")
	}

	numbers := sqidsEncoder.Decode(publicID)
	if len(numbers) != 2 {
		return 0, 0, fmt.Errorf("无法从公共ID解码出预期数量的数字(期望2个，得到%d个)", len(numbers))
	}
	return uint(numbers[0]), numbers[1], nil
}
