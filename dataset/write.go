package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rushteam/recmin/core"
)

// WriteCanonical 写出无表头的 (user, item, rating) 三列文件，供外部训练框架读取。
// 没有解析出 rating 列时返回 MISSING_COLUMN，不写文件。
func WriteCanonical(path string, t *core.Table) error {
	if err := t.Schema.Require(core.ModuleDataset, core.ColumnRating); err != nil {
		return err
	}
	return writeAtomic(path, func(w *csv.Writer) error {
		for i := range t.Rows {
			if err := w.Write(t.CanonicalRecord(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFull 写出带表头的全部原始列，用于审计。
func WriteFull(path string, t *core.Table) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(t.Schema.Header); err != nil {
			return err
		}
		for i := range t.Rows {
			if err := w.Write(t.Rows[i].Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteRecords 写出任意记录；header 为 nil 时不写表头。
func WriteRecords(path string, header []string, records [][]string) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if header != nil {
			if err := w.Write(header); err != nil {
				return err
			}
		}
		return w.WriteAll(records)
	})
}

// WriteFile 原子地写出任意字节内容（例如渲染后的实验配置）。
func WriteFile(path string, data []byte) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFile 整文件复制，目标同样原子替换。
func CopyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeAtomic(path string, fn func(w *csv.Writer) error) error {
	return writeFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		cw.Comma = '\t'
		if err := fn(cw); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
}

// writeFile 先写同目录临时文件再 rename：失败时目标文件保持原样。
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fn(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
