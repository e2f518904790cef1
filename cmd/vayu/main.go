package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import protocol and lifespan implementations so their init() funcs
	// run and register themselves with the importer.
	_ "github.com/shashiranjanraj/vayu/pkg/lifespan"
	_ "github.com/shashiranjanraj/vayu/pkg/protocols/httpone"
	_ "github.com/shashiranjanraj/vayu/pkg/protocols/websockets"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vayu",
	Short: "Vayu — ASGI application server",
	Long:  "Vayu serves ASGI applications over HTTP and WebSocket. Point it at a registered application reference and run.",
}

func init() {
	rootCmd.AddCommand(runCmd)
}
