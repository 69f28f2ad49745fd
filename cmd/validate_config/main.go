package main

import (
	"fmt"
	"os"

	"modbus-acquisition/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   System DB: %s:%d/%s\n", cfg.SystemDB.Host, cfg.SystemDB.Port, cfg.SystemDB.Database)
	fmt.Printf("   Historical DB: %s:%d/%s\n", cfg.HistoricalDB.Host, cfg.HistoricalDB.Port, cfg.HistoricalDB.Database)
	fmt.Printf("   MQTT Broker: %s:%d\n", cfg.MQTTBroker.Host, cfg.MQTTBroker.Port)
	fmt.Printf("   Save period: %d seconds\n", cfg.Periods.SaveToDatabase)

	fmt.Println("\n✅ Configuration is valid!")
}
