package idgen

import (
	"strings"
	"testing"
)

func TestNewImageID(t *testing.T) {
	t.Run("长度固定为21", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			id, err := NewImageID()
			if err != nil {
				t.Fatalf("NewImageID() 返回错误: %v", err)
			}
			if len(id) != ImageIDLength {
				t.Fatalf("期望长度 %d, 得到 %d (%q)", ImageIDLength, len(id), id)
			}
		}
	})

	t.Run("只包含字母表中的字符", func(t *testing.T) {
		id, err := NewImageID()
		if err != nil {
			t.Fatalf("NewImageID() 返回错误: %v", err)
		}
		for _, c := range id {
			if !strings.ContainsRune(DefaultAlphabet, c) {
				t.Fatalf("ID %q 包含字母表之外的字符 %q", id, c)
			}
		}
	})

	t.Run("大量生成不重复", func(t *testing.T) {
		n := 1000000
		if testing.Short() {
			n = 100000
		}
		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			id, err := NewImageID()
			if err != nil {
				t.Fatalf("NewImageID() 返回错误: %v", err)
			}
			if _, ok := seen[id]; ok {
				t.Fatalf("生成了重复的 ID: %q", id)
			}
			seen[id] = struct{}{}
		}
	})
}

func TestPublicID(t *testing.T) {
	if err := InitSqidsEncoder(); err != nil {
		t.Fatalf("初始化编码器失败: %v", err)
	}

	t.Run("编码后可以解码回原值", func(t *testing.T) {
		publicID, err := GeneratePublicID(42, EntityTypeUser)
		if err != nil {
			t.Fatalf("GeneratePublicID() 返回错误: %v", err)
		}
		dbID, entityType, err := DecodePublicID(publicID)
		if err != nil {
			t.Fatalf("DecodePublicID() 返回错误: %v", err)
		}
		if dbID != 42 || entityType != EntityTypeUser {
			t.Fatalf("解码结果不匹配: dbID=%d entityType=%d", dbID, entityType)
		}
	})

	t.Run("非法公共ID返回错误", func(t *testing.T) {
		if _, _, err := DecodePublicID("!!!"); err == nil {
			t.Fatal("期望解码失败, 却成功了")
		}
	})
}
