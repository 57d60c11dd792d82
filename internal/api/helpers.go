package api

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// idParam 解析路径中的 :id。
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// decodeOptionalID 解析三态引用字段：字段缺失时 set 为 false；
// 显式 null 或 0 视为清空；否则为具体 id。
func decodeOptionalID(raw json.RawMessage) (value *uint, set bool, err error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v uint
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	if v == 0 {
		return nil, true, nil
	}
	return &v, true, nil
}

// decodeOptionalString 解析三态字符串字段，空串与 null 等价于清空。
func decodeOptionalString(raw json.RawMessage) (value *string, set bool, err error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	if v == "" {
		return nil, true, nil
	}
	return &v, true, nil
}
