package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avrobridge/avro"
)

func newCreateSchemaCommand() *cobra.Command {
	var canonical bool
	var output string

	cmd := &cobra.Command{
		Use:   "create-schema <schema.json|->",
		Short: "Validate a schema document and re-emit it, optionally in Parsing Canonical Form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			schema, err := avro.ReadSchema(string(raw))
			if err != nil {
				return fmt.Errorf("parse schema: %w", err)
			}
			out, err := avro.WriteSchema(schema, canonical)
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			out = append(out, '\n')
			return writeOutput(output, out)
		},
	}

	cmd.Flags().BoolVar(&canonical, "canonical", false, "emit Parsing Canonical Form instead of full JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
