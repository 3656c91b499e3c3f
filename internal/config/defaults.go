package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:       "~/.config/wordbook",
			SQLiteFile: "wordbook.db",
		},
		Search: SearchConfig{
			DefaultLimit:    50,
			SuggestMinChars: 2,
			SuggestMax:      8,
		},
		History: HistoryConfig{
			MaxEntries: 50,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8765,
			AuthToken:       "",
			MaintenanceCron: "@daily",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "wordbook.log",
		},
	}
}
