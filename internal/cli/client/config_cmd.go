package client

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config command.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change client settings in config.toml",
	}
	cmd.AddCommand(configShowCmd(), configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			path, err := GetConfigPath()
			if err != nil {
				return err
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), cfg)
			}

			w := cmd.OutOrStdout()
			faintColor.Fprintln(w, path)
			fmt.Fprintf(w, "api_url              = %q\n", cfg.APIURL)
			fmt.Fprintf(w, "top_k                = %d\n", cfg.TopK)
			fmt.Fprintf(w, "similarity_threshold = %g\n", cfg.SimilarityThreshold)
			fmt.Fprintf(w, "session_id           = %q\n", cfg.SessionID)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set api_url, top_k, similarity_threshold or session_id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := SaveGlobalConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}

func setConfigValue(cfg *GlobalConfig, key, value string) error {
	switch key {
	case "api_url":
		cfg.APIURL = value
	case "session_id":
		cfg.SessionID = value
	case "top_k":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("top_k must be a non-negative integer")
		}
		cfg.TopK = n
	case "similarity_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("similarity_threshold must be between 0 and 1")
		}
		cfg.SimilarityThreshold = f
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
