package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avrobridge/avro"
)

func newTestSchemaCommand() *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:   "test-schema <schema.json|->",
		Short: "Validate that an Avro-binary data file is structurally well-formed against a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rawSchema, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			schema, err := avro.ReadSchema(string(rawSchema))
			if err != nil {
				return fmt.Errorf("parse schema: %w", err)
			}
			if dataFile == "" {
				fmt.Println("schema is well-formed")
				return nil
			}
			data, err := readInput(dataFile)
			if err != nil {
				return fmt.Errorf("read data: %w", err)
			}
			if err := avro.Validate(schema, data); err != nil {
				return fmt.Errorf("data does not match schema: %w", err)
			}
			fmt.Println("data matches schema")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "path to an Avro-binary data file to validate against the schema (omit to only validate the schema document itself)")
	return cmd
}
