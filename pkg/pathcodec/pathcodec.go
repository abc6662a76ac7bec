// Package pathcodec 地点物化路径的编解码。
//
// 路径由 "." 连接的规范化段组成，首段恒为 Root，例如 root.garage.shelf_a。
// 段只包含 [a-z0-9_]，因此可直接作为 PostgreSQL ltree 标签使用。
package pathcodec

import (
	"strings"

	"github.com/gosimple/unidecode"
)

const (
	// Root 工作区隐式根段
	Root = "root"
	// Separator 路径段分隔符
	Separator = "."
)

// Normalize 将用户输入的地点名转换为规范化路径段：
// 音译为 ASCII → 小写 → [a-z0-9_] 之外的字符折叠为 "_" → 合并连续 "_" → 去除首尾 "_"。
// 全部由符号组成的输入退化为单个 "_"。
func Normalize(name string) string {
	ascii := strings.ToLower(unidecode.Unidecode(name))

	var b strings.Builder
	b.Grow(len(ascii))
	lastUnderscore := false
	for i := 0; i < len(ascii); i++ {
		ch := ascii[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteByte(ch)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	seg := strings.Trim(b.String(), "_")
	if seg == "" {
		return "_"
	}
	return seg
}

// Compose 拼接父路径与新段；父路径为空表示一级地点，挂在 Root 之下。
func Compose(parentPath, segment string) string {
	if parentPath == "" {
		return Root + Separator + segment
	}
	return parentPath + Separator + segment
}

// Depth 返回路径段数，空路径为 0。
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// ParentPath 去掉最后一段；仅有一段时返回空串。
func ParentPath(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Segment 返回路径的最后一段
func Segment(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// Ancestors 返回从一级地点到父地点的全部祖先路径（不含 Root 本身与 path 自身），按深度升序。
//
//	Ancestors("root.a.b.c") == []string{"root.a", "root.a.b"}
func Ancestors(path string) []string {
	var out []string
	for p := ParentPath(path); Depth(p) >= 2; p = ParentPath(p) {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
