package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:   "tail <channel>",
	Short: "Subscribe to a channel and print messages as they arrive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := args[0]

		client, err := newClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := client.Connect(ctx); err != nil {
			return err
		}

		sub, err := client.Subscribe(ctx, channel, nil)
		if err != nil {
			return err
		}
		log.Info().Str("channel", channel).Str("endpoint", client.Endpoint()).Msg("tailing")

		for {
			msg, err := sub.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			fmt.Println(string(msg))
		}
	},
}
