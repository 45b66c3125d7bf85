package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagWrite  = flag.String("write-config", "", "Write the merged config to this path and exit (\"user\" for the user config dir)")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagAddr   = flag.String("addr", "", "Websocket listen address")
	flagGND    = flag.String("gnd", "", "Ground or altitude file to load the initial height field from")
	flagGRF    = flag.String("grf", "", "GRF archive to read the -gnd file from")
	flagRows   = flag.Int("rows", 0, "Height field rows")
	flagCols   = flag.Int("cols", 0, "Height field columns")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the --write-config destination, or "" when the
// config should not be written.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagGND != "" {
		cfg.Session.GNDPath = *flagGND
	}
	if *flagGRF != "" {
		cfg.Session.GRFPath = *flagGRF
	}
	if *flagRows > 0 {
		cfg.Session.Rows = *flagRows
	}
	if *flagCols > 0 {
		cfg.Session.Cols = *flagCols
	}
}
