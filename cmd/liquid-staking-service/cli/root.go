package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	defaultConfigFileName = "config.yml"
)

var (
	cfgPath    string
	replayFlag bool
	inMemory   bool
	rootCmd    = &cobra.Command{
		Use:   "liquid-staking-service",
		Short: "Liquid staking vault and cross-chain staking agent",
		// flags only, the service itself is started by main
		Run: func(cmd *cobra.Command, args []string) {},
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := getDefaultConfigFile(homePath, defaultConfigFileName)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	rootCmd.PersistentFlags().BoolVar(&replayFlag, "replay", false, "re-publish unprocessable messages to their queues and exit")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "run on in-memory storage without a message broker")
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}

func GetReplayFlag() bool {
	return replayFlag
}

func GetInMemoryFlag() bool {
	return inMemory
}
