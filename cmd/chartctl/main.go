// Package main chartctl 命令行：本地计算星盘、查看人格提示词
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"astro-persona-api/internal/config"
	"astro-persona-api/pkg/logger"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "chartctl",
	Short:         "Natal chart and persona tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitWithWriter(os.Stderr, logLevel, "text")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml (defaults to ./configs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	rootCmd.AddCommand(chartCmd, personaCmd)
}

// loadConfig 未指定目录且 ./configs 不存在时使用内置默认值
func loadConfig() (*config.Config, error) {
	if configDir != "" {
		return config.LoadFrom(configDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Defaults()
	}
	return cfg, nil
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
