package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embermesh/ember/pkg/transport"
)

var (
	certOut string
	keyOut  string
)

var certCmd = &cobra.Command{
	Use:   "cert [domains...]",
	Short: "Generate a self-signed certificate for development",
	Long:  `Generates a self-signed certificate for the given domains and writes a PEM pair that a connector with key_store_type PEM can serve. Not for production use.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cert, err := transport.GenerateSelfSignedCertificate(args)
		if err != nil {
			return err
		}

		if err := transport.SaveCertificateToPEM(cert, certOut, keyOut); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s (valid until %s)\n",
			certOut, keyOut, cert.NotAfter.Format("2006-01-02"))
		return nil
	},
}

func init() {
	certCmd.Flags().StringVar(&certOut, "cert-out", "cert.pem", "output path for the certificate")
	certCmd.Flags().StringVar(&keyOut, "key-out", "key.pem", "output path for the private key")
	rootCmd.AddCommand(certCmd)
}
