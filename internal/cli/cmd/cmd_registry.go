package cmd

import (
	"github.com/spf13/cobra"
)

// GetCommands returns all commands for registration
func GetCommands() []*cobra.Command {
	return []*cobra.Command{
		newDaemonCmd(),
		newStatusCmd(),
		newOptionsCmd(),
		newSendCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newServiceCmd(),
		newConfigCmd(),
		newVersionCmd(),
	}
}
