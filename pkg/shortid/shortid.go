// Package shortid 生成面向人工输入与打印的短标识。
package shortid

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Alphanumeric 箱子短 ID 字符集
	Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// Printable 二维码标签字符集，去掉了 0/O、1/I/L 等易混字符
	Printable = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// New 从 alphabet 中均匀随机取 n 个字符
func New(alphabet string, n int) (string, error) {
	if n <= 0 || len(alphabet) == 0 {
		return "", fmt.Errorf("shortid: 无效参数 n=%d alphabet=%d", n, len(alphabet))
	}
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("shortid: 读取随机数失败: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

// Batch 生成 count 个互不相同的短标识
func Batch(alphabet string, n, count int) ([]string, error) {
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for len(out) < count {
		id, err := New(alphabet, n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
