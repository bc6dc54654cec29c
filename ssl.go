// TLS wrapping for RTMPS (C8), grounded on the teacher's rtmp_ssl.go
// SslCertificateLoader, rebuilt on top of the teacher's own declared
// github.com/AgustinSRG/go-tls-certificate-loader dependency, which exists
// to do exactly this job (hot-reload a PEM cert/key pair without
// restarting the listener).

package main

import (
	"crypto/tls"

	certloader "github.com/AgustinSRG/go-tls-certificate-loader"
)

// newTLSConfig builds a *tls.Config whose GetCertificate hook is backed
// by a hot-reloading certificate loader, so operators can rotate the
// RTMPS certificate without a restart.
func newTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	loader, err := certloader.NewCertificateLoader(certloader.CertificateLoaderConfig{
		CertificatePath: certPath,
		KeyPath:         keyPath,
	})
	if err != nil {
		return nil, wrapErr(ErrKindIo, "failed to initialize TLS certificate loader", err)
	}

	return &tls.Config{
		GetCertificate: loader.GetCertificateFunc(),
		MinVersion:     tls.VersionTLS12,
	}, nil
}
