// Command avroctl is a thin CLI shell over the avro, avro/registry and
// avro/avrofile packages: create-schema, generate-code, get-schema and
// test-schema, mirroring the registry-tools shape of dotnet-avro's CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avrobridge/avro/internal/logging"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &registryConfig{}

	root := &cobra.Command{
		Use:           "avroctl",
		Short:         "Avro schema and registry toolkit",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.URL, "registry-url", os.Getenv("AVROCTL_REGISTRY_URL"), "schema registry base URL")
	pf.StringVar(&cfg.Username, "registry-user", os.Getenv("AVROCTL_REGISTRY_USER"), "schema registry basic-auth username")
	pf.StringVar(&cfg.Password, "registry-password", os.Getenv("AVROCTL_REGISTRY_PASSWORD"), "schema registry basic-auth password")
	pf.BoolVar(&cfg.InsecureSkipVerify, "insecure-skip-verify", false, "skip TLS certificate verification when talking to the registry")
	pf.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")

	logger := logging.Default()

	root.AddCommand(
		newCreateSchemaCommand(),
		newGenerateCodeCommand(),
		newGetSchemaCommand(cfg, logger),
		newTestSchemaCommand(),
	)
	return root
}

// registryConfig carries the registry connection settings bound from flags
// and environment by cobra+pflag — the CLI's whole configuration surface,
// there being no separate config-file format.
type registryConfig struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Verbose            bool
}
