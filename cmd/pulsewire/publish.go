package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <channel> [json]",
	Short: "Publish a JSON message to a channel",
	Long:  "Publish a JSON message to a channel. The payload is the second argument, or stdin when omitted.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := args[0]

		var payload []byte
		if len(args) == 2 {
			payload = []byte(args[1])
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			payload = data
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		ctx := context.Background()
		if err := client.Connect(ctx); err != nil {
			return err
		}

		if err := client.Publish(ctx, channel, payload); err != nil {
			return err
		}
		log.Info().Str("channel", channel).Int("bytes", len(payload)).Msg("published")
		return nil
	},
}
