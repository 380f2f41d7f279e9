package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microclaw/core/sensor"
	"github.com/kilianp07/microclaw/infra/logger"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Perform one sensor read and print the JSON envelope",
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	transducer, err := sensor.NewTransducer(cfg.Sensor.Module())
	if err != nil {
		return fmt.Errorf("transducer: %w", err)
	}
	reader := sensor.NewReader(transducer,
		sensor.WithRetries(cfg.Sensor.Retries),
		sensor.WithRetryDelay(cfg.Sensor.RetryDelay()),
		sensor.WithLogger(logger.New("sensor")),
	)
	if err := reader.Begin(); err != nil {
		return err
	}
	reading := reader.Read()
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(reading.Envelope())); err != nil {
		return err
	}
	if !reading.Valid {
		return errors.New(reading.Error)
	}
	return nil
}
