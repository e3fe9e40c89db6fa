package services

import (
	"reflect"
	"testing"
)

func TestTranslateCredentialConfig(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]string
		want   map[string]string
	}{
		{
			name: "full static credentials",
			config: map[string]string{
				"region":            "eu-west-1",
				"access-key-id":     "AKIA123",
				"secret-access-key": "secret",
				"session-token":     "token",
			},
			want: map[string]string{
				"client.region":        "eu-west-1",
				"s3.access-key-id":     "AKIA123",
				"s3.secret-access-key": "secret",
				"s3.session-token":     "token",
			},
		},
		{
			name: "instance credentials",
			config: map[string]string{
				"region":                   "us-east-1",
				"use-instance-credentials": "true",
			},
			want: map[string]string{
				"client.region":               "us-east-1",
				"s3.use-instance-credentials": "true",
			},
		},
		{
			name: "instance credentials disabled",
			config: map[string]string{
				"use-instance-credentials": "false",
			},
			want: map[string]string{},
		},
		{
			name:   "unknown keys dropped",
			config: map[string]string{"gcs.project": "p1"},
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateCredentialConfig(tt.config)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("translateCredentialConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultTableConfig(t *testing.T) {
	got := defaultTableConfig()
	if got["client.region"] != "us-east-1" {
		t.Errorf("expected default region us-east-1, got %q", got["client.region"])
	}
	if got["s3.use-instance-credentials"] != "true" {
		t.Error("expected instance credentials enabled by default")
	}
}

func TestDeriveWarehouse(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{
			name:     "s3 bucket root",
			location: "s3://bucket/dev/orders",
			want:     "s3://bucket/",
		},
		{
			name:     "deep path",
			location: "s3://bucket/tenant/a/b/c",
			want:     "s3://bucket/",
		},
		{
			name:     "short location",
			location: "bucket",
			want:     "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveWarehouse(tt.location); got != tt.want {
				t.Errorf("deriveWarehouse(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}
