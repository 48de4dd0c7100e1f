// Package security builds crypto/tls configurations from file-based settings.
//
// The same TLSConfig block serves both ends of the pipeline. The client uses
// ClientConfig to trust a private CA in front of the relay or the upstream
// service. The relay uses ServerConfig to terminate TLS itself, optionally
// requiring client certificates signed by CAFile.
//
//	client:
//	  tls:
//	    ca_file: /etc/transcribe/ca.pem
//	relay:
//	  server:
//	    tls:
//	      cert_file: /etc/relay/cert.pem
//	      key_file: /etc/relay/key.pem
package security
