package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	driver "gitlab.com/gomidi/rtmididrv"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available MIDI input ports",
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	drv, err := driver.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer drv.Close()

	inputs, err := drv.Ins()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println("available input ports:")
	for _, port := range inputs {
		fmt.Printf("%2d: %s\n", port.Number(), port.String())
	}
}
