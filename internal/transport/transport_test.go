package transport

import (
	"errors"
	"testing"
)

func TestCheckVersionCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		serverVersion string
		cliVersion    string
		wantErr       bool
	}{
		{name: "matching versions", serverVersion: "1.2.3", cliVersion: "1.2.3", wantErr: false},
		{name: "same major, server ahead", serverVersion: "1.9.0", cliVersion: "1.0.0", wantErr: false},
		{name: "same major, cli ahead", serverVersion: "1.0.0", cliVersion: "1.9.0", wantErr: false},
		{name: "major mismatch, server ahead", serverVersion: "2.0.0", cliVersion: "1.5.0", wantErr: true},
		{name: "major mismatch, cli ahead", serverVersion: "1.5.0", cliVersion: "2.0.0", wantErr: true},
		{name: "v-prefixed versions", serverVersion: "v1.2.3", cliVersion: "1.2.3", wantErr: false},
		{name: "empty server version skips check", serverVersion: "", cliVersion: "1.0.0", wantErr: false},
		{name: "empty cli version skips check", serverVersion: "1.0.0", cliVersion: "", wantErr: false},
		{name: "dev build skips check", serverVersion: "5.0.0", cliVersion: "dev", wantErr: false},
		{name: "invalid server version skips check", serverVersion: "not-a-version", cliVersion: "1.0.0", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVersionCompatibility(tt.serverVersion, tt.cliVersion)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckVersionCompatibility(%q, %q) = %v, wantErr %v", tt.serverVersion, tt.cliVersion, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrVersionIncompatible) {
				t.Errorf("error %v does not wrap ErrVersionIncompatible", err)
			}
		})
	}
}
