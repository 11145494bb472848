package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// 规范化消息文本：去首尾空白、转小写、折叠连续空白
func NormalizeText(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// 按字符数截断，返回截断后的文本和是否发生截断
func TruncateText(s string, limit int) (string, bool) {
	if limit <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}

// 证据文本统一裁剪到120字符
func ClampEvidence(s string) string {
	clamped, _ := TruncateText(s, 120)
	return clamped
}

// 把整数夹在[lo, hi]区间内
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HashInput 计算尝试输入的内容哈希，作为缓存键
// 相同的规范化文本+提示词版本+模型+上下文摘要必须得到相同的哈希
func HashInput(normalizedText, promptVersion, modelID, contextDigest string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte{0})
	h.Write([]byte(promptVersion))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(contextDigest))
	return hex.EncodeToString(h.Sum(nil))
}
