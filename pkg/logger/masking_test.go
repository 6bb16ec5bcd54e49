package logger

import "testing"

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		maskType MaskingType
		want     any
	}{
		{name: "full", value: "secret", maskType: MaskingTypeFull, want: "***"},
		{name: "partial short", value: "abc", maskType: MaskingTypePartial, want: "***"},
		{name: "partial medium", value: "abcdef", maskType: MaskingTypePartial, want: "a***"},
		{name: "partial long", value: "abcdefgh", maskType: MaskingTypePartial, want: "a******h"},
		{name: "email", value: "bob@example.com", maskType: MaskingTypeEmail, want: "b***@example.com"},
		{name: "email single char", value: "b@example.com", maskType: MaskingTypeEmail, want: "*@example.com"},
		{name: "email invalid", value: "not-an-email", maskType: MaskingTypeEmail, want: "***"},
		{name: "card", value: "4111 1111 1111 1234", maskType: MaskingTypeCard, want: "****-****-****-1234"},
		{name: "first name", value: "John", maskType: MaskingTypeFirstName, want: "J***"},
		{name: "username", value: "user", maskType: MaskingTypeUsername, want: "us**"},
		{name: "phone", value: "0812345890", maskType: MaskingTypePhone, want: "*******890"},
		{name: "token", value: "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiIxIn0.sig", maskType: MaskingTypeToken, want: "eyJhbGciOiJSUzI1NiJ9.***"},
		{name: "number", value: 12345, maskType: MaskingTypeFull, want: "***"},
		{name: "empty untouched", value: "", maskType: MaskingTypeFull, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskValue(tt.value, tt.maskType); got != tt.want {
				t.Errorf("maskValue(%v, %s) = %v, want %v", tt.value, tt.maskType, got, tt.want)
			}
		})
	}
}

func TestMaskDataPaths(t *testing.T) {
	data := map[string]any{
		"headers": map[string]any{
			"Cookie": "auth_token=abc",
		},
		"result": []any{
			map[string]any{"email": "a@x.io", "token": "t1"},
			map[string]any{"email": "b@x.io", "token": "t2"},
		},
	}

	masked := MaskData(data, []MaskingRule{
		{Field: "headers.*", Type: MaskingTypeFull},
		{Field: "result.token", Type: MaskingTypeFull, IsArray: true},
	}).(map[string]any)

	if masked["headers"].(map[string]any)["Cookie"] != "***" {
		t.Errorf("wildcard masking failed: %v", masked["headers"])
	}
	for _, item := range masked["result"].([]any) {
		if item.(map[string]any)["token"] != "***" {
			t.Errorf("array masking failed: %v", item)
		}
	}
	// original must stay untouched
	if data["headers"].(map[string]any)["Cookie"] != "auth_token=abc" {
		t.Error("MaskData mutated its input")
	}
}
