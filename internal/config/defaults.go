package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/dreamlog",
			SQLiteFile:        "dreamlog.db",
			SQLiteJournalMode: "wal",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "console",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		AI: AIConfig{
			Enabled:             true,
			Provider:            "ollama",
			OllamaURL:           "http://localhost:11434",
			Model:               "llama3.2",
			TimeoutSeconds:      60,
			MinEntries:          3,
			MaxEntries:          20,
			BodyExcerptChars:    200,
			InterpretationStyle: "mixed",
		},
		Usage: UsageConfig{
			MonthlyLimit: 3,
		},
		Entitlement: EntitlementConfig{
			ProductID:     "dreamlog.premium.lifetime",
			ReceiptFile:   "~/.config/dreamlog/receipt.jwt",
			PublicKeyFile: "",
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}
