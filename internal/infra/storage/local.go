/*
 * @Description: 本地磁盘存储驱动
 * @Author: 青陌
 * @Date: 2025-05-14 10:08:26
 * @LastEditTime: 2025-09-25 20:14:37
 * @LastEditors: 青陌
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Driver 定义了物理文件存取的契约。
// 目前只有本地磁盘实现，接口留出空间给未来的对象存储后端。
type Driver interface {
	// Save 将数据流写入相对路径 relPath，返回写入的字节数。
	Save(ctx context.Context, reader io.Reader, relPath string) (int64, error)

	// Open 打开相对路径对应的物理文件。
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)

	// Delete 删除相对路径对应的物理文件。
	Delete(ctx context.Context, relPath string) error

	// Exists 检查相对路径对应的物理文件是否存在。
	Exists(ctx context.Context, relPath string) (bool, error)

	// Walk 遍历存储根目录下的所有文件，回调收到相对路径、大小和修改时间。
	Walk(ctx context.Context, fn func(relPath string, size int64, modTime time.Time) error) error
}

// LocalDriver 实现了 Driver 接口，用于处理与本机磁盘文件系统的所有交互。
type LocalDriver struct {
	root string
}

// NewLocalDriver 创建本地磁盘驱动，root 是上传文件的根目录。
func NewLocalDriver(root string) (*LocalDriver, error) {
	if root == "" {
		root = "data/uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("无法创建上传根目录 '%s': %w", root, err)
	}
	return &LocalDriver{root: root}, nil
}

// Root 返回存储根目录
func (d *LocalDriver) Root() string {
	return d.root
}

// Save 先写入临时文件再原子地移动到最终位置，避免半写文件被读到。
func (d *LocalDriver) Save(ctx context.Context, reader io.Reader, relPath string) (int64, error) {
	processingTempDir := filepath.Join(d.root, ".tmp")
	if err := os.MkdirAll(processingTempDir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("无法创建用于处理的临时目录 '%s': %w", processingTempDir, err)
	}

	tempFile, err := os.CreateTemp(processingTempDir, "qingtu-app-processing-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("无法在 '%s' 目录创建临时文件: %w", processingTempDir, err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	size, err := io.Copy(tempFile, reader)
	if err != nil {
		return 0, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return 0, fmt.Errorf("同步临时文件到磁盘失败: %w", err)
	}

	finalPath := filepath.Join(d.root, relPath)
	if err := os.MkdirAll(filepath.Dir(finalPath), os.ModePerm); err != nil {
		return 0, fmt.Errorf("无法创建存储子目录 '%s': %w", filepath.Dir(finalPath), err)
	}

	// 关闭文件句柄，准备移动
	tempFileName := tempFile.Name()
	tempFile.Close()

	// 尝试使用 os.Rename (高效)，如果失败则使用 copy + delete (兼容跨文件系统)
	if err := os.Rename(tempFileName, finalPath); err != nil {
		if err := copyFile(tempFileName, finalPath); err != nil {
			os.Remove(tempFileName)
			return 0, fmt.Errorf("复制文件到最终存储位置 '%s' 失败: %w", finalPath, err)
		}
		os.Remove(tempFileName)
	}

	return size, nil
}

// Open 打开物理文件。文件缺失时错误链携带 fs.ErrNotExist，
// 调用方可以据此区分完整性异常和普通读取失败。
func (d *LocalDriver) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	fullPath := filepath.Join(d.root, relPath)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开物理文件 '%s': %w", relPath, err)
	}
	return file, nil
}

// Delete 删除物理文件
func (d *LocalDriver) Delete(ctx context.Context, relPath string) error {
	fullPath := filepath.Join(d.root, relPath)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // 文件已经不在了，视为删除成功
		}
		return fmt.Errorf("删除物理文件 '%s' 失败: %w", relPath, err)
	}
	return nil
}

// Exists 检查物理文件是否存在
func (d *LocalDriver) Exists(ctx context.Context, relPath string) (bool, error) {
	_, err := os.Stat(filepath.Join(d.root, relPath))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Walk 遍历存储根目录下的所有普通文件，跳过临时目录。
func (d *LocalDriver) Walk(ctx context.Context, fn func(relPath string, size int64, modTime time.Time) error) error {
	tmpDir := filepath.Join(d.root, ".tmp")
	return filepath.Walk(d.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == tmpDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info.Size(), info.ModTime())
	})
}

// copyFile 复制文件从 src 到 dst，用于跨文件系统的文件移动
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("无法打开源文件: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("无法创建目标文件: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("复制文件内容失败: %w", err)
	}

	// 确保数据写入磁盘
	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("同步文件到磁盘失败: %w", err)
	}

	return nil
}
