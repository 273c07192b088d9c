package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embermesh/ember/pkg/conf"
	"github.com/embermesh/ember/pkg/keystore"
	"github.com/embermesh/ember/pkg/transport"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration without starting a listener",
	Long:  `Loads the configuration, resolves the SSL material (opening keystores and consulting hardware providers) and reports the result. Exits non-zero on any error a serve run would hit at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.SSL == nil || !cfg.SSL.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK (SSL disabled)")
			return nil
		}

		if err := checkSSL(cfg.SSL); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	},
}

// checkSSL runs the same customization a server construction would, then
// resolves the host configuration to prove the key material is loadable.
func checkSSL(ssl *conf.SSL) error {
	connector := transport.NewConnector()
	customizer := transport.NewCustomizer(connector, ssl.ClientAuth)

	bundle, err := keystore.GetBundle(ssl)
	if err != nil {
		return err
	}
	if err := customizer.Customize(bundle); err != nil {
		return err
	}

	if _, err := transport.BuildTLSConfig(connector.HostConfig()); err != nil {
		return err
	}
	return nil
}
