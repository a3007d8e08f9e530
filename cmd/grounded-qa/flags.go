package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bindFlag binds a command flag to a viper key
func bindFlag(cmd *cobra.Command, key, flag string) error {
	return viper.BindPFlag(key, cmd.Flags().Lookup(flag))
}
