// Command pulsewire is a small CLI around the pulsewire client library:
// tail a channel, or publish a message to one.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
