package security

import (
	"crypto/tls"
	"testing"

	"github.com/kbukum/transcribekit/security/tlstest"
)

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"zero", &TLSConfig{}, false},
		{"pair", &TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}, false},
		{"cert without key", &TLSConfig{CertFile: "cert.pem"}, true},
		{"key without cert", &TLSConfig{KeyFile: "key.pem"}, true},
		{"tls13", &TLSConfig{MinVersion: tls.VersionTLS13}, false},
		{"bogus version", &TLSConfig{MinVersion: 0x9999}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTLSConfig_Enabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		enabled bool
		serves  bool
	}{
		{"nil", nil, false, false},
		{"zero", &TLSConfig{}, false, false},
		{"skip verify", &TLSConfig{SkipVerify: true}, true, false},
		{"ca only", &TLSConfig{CAFile: "ca.pem"}, true, false},
		{"server name", &TLSConfig{ServerName: "relay.internal"}, true, false},
		{"key pair", &TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.IsEnabled(); got != tc.enabled {
				t.Errorf("IsEnabled() = %v, want %v", got, tc.enabled)
			}
			if got := tc.cfg.ServesTLS(); got != tc.serves {
				t.Errorf("ServesTLS() = %v, want %v", got, tc.serves)
			}
		})
	}
}

func TestClientConfig_Disabled(t *testing.T) {
	for _, cfg := range []*TLSConfig{nil, {}} {
		got, err := cfg.ClientConfig()
		if err != nil || got != nil {
			t.Errorf("expected nil config, got %v, %v", got, err)
		}
	}
}

func TestClientConfig(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &TLSConfig{
		CAFile:     certs.CAFile,
		CertFile:   certs.CertFile,
		KeyFile:    certs.KeyFile,
		ServerName: "localhost",
		MinVersion: tls.VersionTLS13,
	}
	got, err := cfg.ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	if got.RootCAs == nil {
		t.Error("expected RootCAs")
	}
	if len(got.Certificates) != 1 {
		t.Errorf("expected a client certificate, got %d", len(got.Certificates))
	}
	if got.ServerName != "localhost" || got.MinVersion != tls.VersionTLS13 {
		t.Errorf("unexpected config %+v", got)
	}
	if got.InsecureSkipVerify {
		t.Error("verification should stay on")
	}
}

func TestClientConfig_SkipVerifyDefaultsToTLS12(t *testing.T) {
	got, err := (&TLSConfig{SkipVerify: true}).ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	if !got.InsecureSkipVerify || got.MinVersion != tls.VersionTLS12 {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestClientConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TLSConfig
	}{
		{"missing CA", &TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA", &TLSConfig{CAFile: tlstest.WriteInvalidPEM(t, "ca.pem")}},
		{"missing pair", &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}},
		{"half pair", &TLSConfig{CertFile: "cert.pem"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.cfg.ClientConfig(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	certs := tlstest.Generate(t)

	got, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	if len(got.Certificates) != 1 || got.ClientAuth != tls.NoClientCert {
		t.Errorf("unexpected server config %+v", got)
	}

	got, err = (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, CAFile: certs.CAFile}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig with CA: %v", err)
	}
	if got.ClientCAs == nil || got.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("expected mandatory client certificates, got %v", got.ClientAuth)
	}

	if got, err := (&TLSConfig{CAFile: certs.CAFile}).ServerConfig(); err != nil || got != nil {
		t.Errorf("a CA alone should not serve TLS, got %v, %v", got, err)
	}
}
