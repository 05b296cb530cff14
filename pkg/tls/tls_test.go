package tls_test

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	tlsutil "github.com/provoke-dev/provoke/pkg/tls"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "sample.crt")
	keyFile := filepath.Join(dir, "sample.key")

	if err := tlsutil.GenerateSelfSignedCert(certFile, keyFile, "provoke-sample", "10.0.0.7", "fixture.local"); err != nil {
		t.Fatalf("GenerateSelfSignedCert() error = %v", err)
	}

	pemBytes, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("cert file does not contain a CERTIFICATE block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}

	if cert.Subject.CommonName != "provoke-sample" {
		t.Errorf("common name = %q, want provoke-sample", cert.Subject.CommonName)
	}

	dns := map[string]bool{}
	for _, name := range cert.DNSNames {
		dns[name] = true
	}
	if !dns["localhost"] || !dns["fixture.local"] {
		t.Errorf("DNS SANs = %v, want localhost and fixture.local", cert.DNSNames)
	}

	foundIP := false
	for _, ip := range cert.IPAddresses {
		if ip.String() == "10.0.0.7" {
			foundIP = true
		}
	}
	if !foundIP {
		t.Errorf("IP SANs = %v, want 10.0.0.7", cert.IPAddresses)
	}

	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("Failed to stat key: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "sample.crt")
	keyFile := filepath.Join(dir, "sample.key")

	if err := tlsutil.GenerateSelfSignedCert(certFile, keyFile, "provoke-sample"); err != nil {
		t.Fatalf("GenerateSelfSignedCert() error = %v", err)
	}

	cfg, err := tlsutil.LoadTLSConfig(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("certificates = %d, want 1", len(cfg.Certificates))
	}

	if _, err := tlsutil.LoadTLSConfig(filepath.Join(dir, "absent.crt"), keyFile); err == nil {
		t.Error("LoadTLSConfig() with missing cert: error = nil, want load error")
	}
}
