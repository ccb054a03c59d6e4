package storage

import "testing"

func TestNewMinIOStorageValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  MinIOConfig
	}{
		{"missing endpoint", MinIOConfig{AccessKey: "a", SecretKey: "s"}},
		{"missing access key", MinIOConfig{Endpoint: "localhost:9000", SecretKey: "s"}},
		{"missing secret key", MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinIOStorage(tt.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}

	s, err := NewMinIOStorage(MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	if err != nil || s == nil {
		t.Fatalf("NewMinIOStorage() = %v, %v", s, err)
	}
}

func TestMinIOConfigEnabled(t *testing.T) {
	if (MinIOConfig{}).Enabled() {
		t.Fatal("empty config should be disabled")
	}
	if !(MinIOConfig{Endpoint: "minio:9000"}).Enabled() {
		t.Fatal("endpoint config should be enabled")
	}
}
