package main

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avrobridge/avro"
	"github.com/avrobridge/avro/internal/logging"
	"github.com/avrobridge/avro/registry"
)

func newGetSchemaCommand(cfg *registryConfig, logger *logging.Logger) *cobra.Command {
	var id int
	var subject string
	var version int
	var output string
	var canonical bool

	cmd := &cobra.Command{
		Use:   "get-schema",
		Short: "Fetch a schema from the registry by id, or by subject and version",
		RunE: func(_ *cobra.Command, _ []string) error {
			if cfg.URL == "" {
				return fmt.Errorf("--registry-url is required")
			}
			var tlsConf *tls.Config
			if cfg.InsecureSkipVerify {
				tlsConf = &tls.Config{InsecureSkipVerify: true}
			}
			l := logger
			if !cfg.Verbose {
				l = nil
			}
			client, err := registry.NewHTTPClient(cfg.URL, cfg.Username, cfg.Password, tlsConf, l)
			if err != nil {
				return fmt.Errorf("build registry client: %w", err)
			}

			var schema avro.Schema
			ctx := context.Background()
			switch {
			case id > 0:
				info, err := client.SchemaByID(ctx, id)
				if err != nil {
					return fmt.Errorf("fetch schema by id: %w", err)
				}
				schema = info.Schema
			case subject != "" && version > 0:
				info, err := client.SchemaByVersion(ctx, subject, version)
				if err != nil {
					return fmt.Errorf("fetch schema by version: %w", err)
				}
				schema = info.Schema
			case subject != "":
				info, err := client.LatestSchema(ctx, subject)
				if err != nil {
					return fmt.Errorf("fetch latest schema: %w", err)
				}
				schema = info.Schema
			default:
				return fmt.Errorf("one of --id or --subject must be given")
			}

			out, err := avro.WriteSchema(schema, canonical)
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			out = append(out, '\n')
			return writeOutput(output, out)
		},
	}

	cmd.Flags().IntVar(&id, "id", 0, "schema id")
	cmd.Flags().StringVar(&subject, "subject", "", "registry subject")
	cmd.Flags().IntVar(&version, "version", 0, "subject version (defaults to latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "emit Parsing Canonical Form")
	return cmd
}
