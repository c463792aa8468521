package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/TEENet-io/escrow-go/cmd"
	"github.com/TEENet-io/escrow-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "ESCROW_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	viper.SetDefault("HTTP_IP", "0.0.0.0")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("DB_FILE_PATH", "escrow.db")
	viper.SetDefault("RESCUE_DELAY", 7*24*3600)
	viper.SetDefault("EVENT_CHANNEL_SIZE", cmd.CHANNEL_BUFFER_SIZE)
	viper.SetDefault("LOG_LEVEL", "production")

	// Accessing an environment variable of configuration file location.
	// Without a file the server runs on env vars and defaults only.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	if _config_file != "" {
		fmt.Printf("Escrow server configuration file = %s\n", _config_file)
		if !cmd.FileExists(_config_file) {
			fmt.Printf("Escrow server configuration file not found: %s\n", _config_file)
			return
		}
		if !initializeViper(_config_file) {
			return
		}
	}

	logconfig.ConfigByLevel(viper.GetString("LOG_LEVEL"))

	esc := PrepareEscrowServerConfig()

	fmt.Println("Starting escrow server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartEscrowServerAndWait(esc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareEscrowServerConfig reads configuration variables and returns an EscrowServerConfig.
func PrepareEscrowServerConfig() *cmd.EscrowServerConfig {
	return &cmd.EscrowServerConfig{
		DbFilePath:       viper.GetString("DB_FILE_PATH"),
		RedisAddr:        viper.GetString("REDIS_ADDR"),
		RescueDelay:      viper.GetUint64("RESCUE_DELAY"),
		EventChannelSize: viper.GetInt("EVENT_CHANNEL_SIZE"),
		HttpIp:           viper.GetString("HTTP_IP"),
		HttpPort:         viper.GetString("HTTP_PORT"),
	}
}
