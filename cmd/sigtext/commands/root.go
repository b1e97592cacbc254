package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "sigtext",
		Short: "Signature verification for text messages",
		Long:  "SigText — Extracts cryptographic signature tags from messages, resolves the sender against the verified-organization directory, and verifies. Works offline against a local mirror.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "sigtext.yaml", "config file path")

	root.AddCommand(
		newVerifyCmd(),
		newQRCmd(),
		newWatchCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newHistoryCmd(),
		newOrgsCmd(),
		newAddressCmd(),
		newKeygenCmd(),
		newSignCmd(),
		newServeCmd(),
		newMCPCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}
