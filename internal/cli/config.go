package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabmaster/tabmaster/pkg/config"
	"github.com/tabmaster/tabmaster/pkg/index"
)

type ConfigArgs struct {
	*RootArgs

	Write bool
	Force bool
}

func NewConfigArgs(rootArgs *RootArgs) *ConfigArgs {
	return &ConfigArgs{
		RootArgs: rootArgs,
	}
}

func (ca *ConfigArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&ca.Write, "write", false, "Write the default configuration files and exit")
	cmd.Flags().BoolVar(&ca.Force, "force", false, "Back up and replace an existing configuration file")
}

func NewConfigCmd(ca *ConfigArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or write the active configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath := ca.ConfigPath
			if configPath == "" {
				configPath = config.GetPath()
			}

			if ca.Write {
				return config.WriteDefaultConfig(configPath, ca.Force)
			}

			cfg, err := loadConfig(ca.RootArgs)
			if err != nil {
				return err
			}

			b, err := cfg.MarshalYAML()
			if err != nil {
				return fmt.Errorf("marshal config yaml: %w", err)
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), string(b)))

			return nil
		},
	}
	ca.AddFlags(cmd)
	cmd.AddCommand(newConfigSetCategoryCmd(ca))

	bindEnvVars(cmd)

	return cmd
}

func newConfigSetCategoryCmd(ca *ConfigArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "set-category <domain> <category>...",
		Short: "Record a domain category override in the configuration file",
		Long: `Record a domain category override in the configuration file.

The categories section of the config file is updated in place; the rest of
the file, including comments, is preserved. The override feeds the category
derived field and the by-category index on subsequent runs.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			configPath := ca.ConfigPath
			if configPath == "" {
				configPath = config.GetPath()
			}

			err := config.WriteDefaultConfig(configPath, false)
			if err != nil {
				return fmt.Errorf("write default config: %w", err)
			}

			return config.SetCategories(configPath, index.Categories{
				args[0]: args[1:],
			})
		},
	}
}
