package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the marvin-mcp application
var rootCmd = &cobra.Command{
	Use:   "marvin-mcp",
	Short: "MCP server for the Amazing Marvin task manager",
	Long: `marvin-mcp exposes Amazing Marvin tasks, projects, labels and time
tracking to AI assistants over the Model Context Protocol.

It can run as:
  - A local MCP server over stdio (default)
  - A hosted MCP server over streamable HTTP, where every request carries
    its own API token`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "marvin-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
