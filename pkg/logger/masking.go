package logger

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

type MaskingType string

const (
	MaskingTypeFull      MaskingType = "full"       // แสดงเป็น "***"
	MaskingTypePartial   MaskingType = "partial"    // แสดงบางส่วน เช่น "a*****z"
	MaskingTypeEmail     MaskingType = "email"      // แสดงเป็น "a***@example.com"
	MaskingTypeCard      MaskingType = "card"       // แสดงเป็น "****-****-****-1234"
	MaskingTypeFirstName MaskingType = "first_name" // แสดงเฉพาะตัวแรก เช่น "J***"
	MaskingTypeLastName  MaskingType = "last_name"  // แสดงเฉพาะตัวแรก เช่น "D***"
	MaskingTypePhone     MaskingType = "phone"      // แสดง 3 ตัวท้าย เช่น "*******890"
	MaskingTypeUsername  MaskingType = "username"   // แสดงสองตัวแรก เช่น "us**"
	MaskingTypeToken     MaskingType = "token"      // keeps the JWT header segment only
)

type MaskingRule struct {
	Field   string      // path ใช้ dot notation เช่น "body.password", "result.*.username"
	Type    MaskingType // ประเภทการ mask
	IsArray bool        // true เมื่อต้องการ mask array elements
}

// MaskData applies masking rules to a JSON-compatible copy of data.
func MaskData(data any, rules []MaskingRule) any {
	if len(rules) == 0 {
		return data
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return data
	}

	var dataMap map[string]any
	if err := json.Unmarshal(jsonBytes, &dataMap); err != nil {
		return data
	}

	for _, rule := range rules {
		maskPath(dataMap, strings.Split(rule.Field, "."), rule.Type, rule.IsArray)
	}

	return dataMap
}

func maskPath(data any, pathParts []string, maskType MaskingType, isArray bool) {
	if len(pathParts) == 0 {
		return
	}

	current, rest := pathParts[0], pathParts[1:]

	switch v := data.(type) {
	case map[string]any:
		keys := []string{current}
		if current == "*" {
			keys = keys[:0]
			for key := range v {
				keys = append(keys, key)
			}
		}
		for _, key := range keys {
			val, exists := v[key]
			if !exists {
				continue
			}
			arr, isSlice := val.([]any)
			switch {
			case len(rest) == 0 && isSlice && isArray:
				for i := range arr {
					arr[i] = maskValue(arr[i], maskType)
				}
			case len(rest) == 0:
				v[key] = maskValue(val, maskType)
			case isSlice && isArray:
				for i := range arr {
					maskPath(arr[i], rest, maskType, isArray)
				}
			default:
				maskPath(val, rest, maskType, isArray)
			}
		}

	case []any:
		for i := range v {
			maskPath(v[i], pathParts, maskType, isArray)
		}
	}
}

func maskValue(value any, maskType MaskingType) any {
	strValue, ok := value.(string)
	if !ok {
		strValue = toString(value)
	}
	if strValue == "" {
		return value
	}

	switch maskType {
	case MaskingTypePartial:
		return maskPartial(strValue)
	case MaskingTypeEmail:
		return maskEmail(strValue)
	case MaskingTypeCard:
		return maskCard(strValue)
	case MaskingTypeFirstName, MaskingTypeLastName:
		return maskKeepPrefix(strValue, 1)
	case MaskingTypeUsername:
		return maskKeepPrefix(strValue, 2)
	case MaskingTypePhone:
		return maskPhone(strValue)
	case MaskingTypeToken:
		return maskToken(strValue)
	default:
		return "***"
	}
}

func maskPartial(s string) string {
	length := len(s)
	if length <= 3 {
		return "***"
	}
	if length <= 6 {
		return string(s[0]) + "***"
	}
	return string(s[0]) + strings.Repeat("*", length-2) + string(s[length-1])
}

func maskEmail(email string) string {
	username, domain, found := strings.Cut(email, "@")
	if !found || strings.Contains(domain, "@") {
		return "***"
	}
	if len(username) <= 1 {
		return "*@" + domain
	}

	maskLength := len(username) - 1
	if maskLength < 3 {
		maskLength = 3
	}
	return string(username[0]) + strings.Repeat("*", maskLength) + "@" + domain
}

func maskCard(card string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(card)
	if len(cleaned) < 4 {
		return "****"
	}
	return "****-****-****-" + cleaned[len(cleaned)-4:]
}

func maskKeepPrefix(s string, keep int) string {
	r := []rune(s)
	if len(r) <= keep {
		return "***"
	}
	return string(r[:keep]) + strings.Repeat("*", len(r)-keep)
}

func maskPhone(phone string) string {
	if len(phone) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}

// maskToken keeps the JWT header (alg/kid are useful when debugging rotation).
func maskToken(token string) string {
	header, _, found := strings.Cut(token, ".")
	if !found {
		return "***"
	}
	return header + ".***"
}

func toString(value any) string {
	if value == nil {
		return ""
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return fmt.Sprint(value)
	default:
		jsonBytes, _ := json.Marshal(value)
		return string(jsonBytes)
	}
}
