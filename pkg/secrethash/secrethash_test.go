package secrethash

import (
	"encoding/base64"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		username     string
		want         string
	}{
		{
			name:         "reference vector",
			clientID:     "client-123",
			clientSecret: "s3cr3t",
			username:     "alice@example.com",
			want:         "5MYK9Ap81ZPbJ89UEqyye/8ZEAh39JKSVTqFB8TU5pY=",
		},
		{
			name:         "short inputs",
			clientID:     "abc",
			clientSecret: "key",
			username:     "user",
			want:         "keIFIvXwBLonJoIH8Rab6jgL5+XBHLYeiNhYEmL7KfI=",
		},
		{
			name:         "username changed by one character",
			clientID:     "client-123",
			clientSecret: "s3cr3t",
			username:     "alicf@example.com",
			want:         "rSAUPGLgmHgUUQTv+F3x5sW59mkAAqN82f2otuXtDuc=",
		},
		{
			name:         "client id changed by one character",
			clientID:     "client-124",
			clientSecret: "s3cr3t",
			username:     "alice@example.com",
			want:         "pD2kk/La+P0Lxzs/hQ0seGZqn5qJT9aAL7LlbT2RMUs=",
		},
		{
			name:         "secret changed by one character",
			clientID:     "client-123",
			clientSecret: "s3cr3u",
			username:     "alice@example.com",
			want:         "I0H4V7cCy930T12YCTtLYe+aWMaIQVdLsJMUAxAwh5I=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.clientID, tt.clientSecret, tt.username); got != tt.want {
				t.Errorf("Compute() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	a := Compute("client-123", "s3cr3t", "alice@example.com")
	b := Compute("client-123", "s3cr3t", "alice@example.com")
	if a != b {
		t.Errorf("Compute() not deterministic: %s != %s", a, b)
	}
}

func TestComputeShape(t *testing.T) {
	got := Compute("", "", "")
	if len(got) != 44 {
		t.Errorf("len = %d, want 44", len(got))
	}
	raw, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("not standard base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded len = %d, want 32", len(raw))
	}
}

func TestComputeNoNormalisation(t *testing.T) {
	if Compute("client-123", "s3cr3t", "Alice@example.com") == Compute("client-123", "s3cr3t", "alice@example.com") {
		t.Error("username case must change the hash")
	}
	if Compute("client-123", "s3cr3t", " alice@example.com") == Compute("client-123", "s3cr3t", "alice@example.com") {
		t.Error("leading whitespace must change the hash")
	}
}
