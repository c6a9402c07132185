package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective road configuration as YAML",
	Long: `Print the road configuration that "trafficsim run" would use, after the ` +
		`environment and the --config file are applied. The output can be edited and ` +
		`passed back with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig(stringOption(cmd, "config", os.LookupEnv),
			os.LookupEnv)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)

		if err := enc.Encode(config); err != nil {
			return err
		}

		return enc.Close()
	},
}

func init() {
	configCmd.Flags().String("config", "", "YAML file that describes the roads")
	rootCmd.AddCommand(configCmd)
}
