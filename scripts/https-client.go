package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var (
	url      = flag.String("url", "https://localhost:8443/healthz", "URL to request")
	caFile   = flag.String("ca", "", "PEM file with CA certificates to trust")
	insecure = flag.Bool("insecure", false, "Skip certificate verification")
	count    = flag.Int("count", 1, "Number of requests to send")
	interval = flag.Int("interval", 0, "Delay between requests in milliseconds")
	http2    = flag.Bool("http2", true, "Attempt HTTP/2")
)

func main() {
	flag.Parse()

	tlsConfig := &tls.Config{
		InsecureSkipVerify: *insecure,
	}

	if *caFile != "" {
		pem, err := os.ReadFile(*caFile)
		if err != nil {
			log.Fatalf("Failed to read CA file: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			log.Fatalf("No certificates found in %s", *caFile)
		}
		tlsConfig.RootCAs = pool
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   tlsConfig,
			ForceAttemptHTTP2: *http2,
		},
		Timeout: 10 * time.Second,
	}

	for i := 0; i < *count; i++ {
		if i > 0 && *interval > 0 {
			time.Sleep(time.Duration(*interval) * time.Millisecond)
		}

		start := time.Now()
		resp, err := client.Get(*url)
		if err != nil {
			log.Fatalf("Request failed: %v", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("Failed to read response: %v", err)
		}

		fmt.Printf("[%d] %s %s in %v\n", i+1, resp.Proto, resp.Status, time.Since(start).Round(time.Millisecond))
		if state := resp.TLS; state != nil {
			fmt.Printf("    TLS %s, cipher %s, server %q\n",
				tls.VersionName(state.Version),
				tls.CipherSuiteName(state.CipherSuite),
				state.PeerCertificates[0].Subject.CommonName)
		}
		if len(body) > 0 {
			fmt.Printf("    %s\n", body)
		}
	}
}
