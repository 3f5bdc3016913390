package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/paraglidehq/seqid/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	configFlag         = "config"
	dotenvFileFlag     = "dotenv-file"
	customEpochFlag    = "custom-epoch"
	nodeIDBitsFlag     = "node-id-bits"
	nodeIDFlag         = "node-id"
	sequenceBitsFlag   = "sequence-bits"
	unusedBitsFlag     = "unused-bits"
	microsTenPowerFlag = "micros-ten-power"
	cooldownNsFlag     = "cooldown-ns"
	logLevelFlag       = "log-level"
)

// rootFlags are the settings shared by every subcommand. They override the
// config file, the dotenv file and SEQID_ variables, in that order, but only
// when given on the command line.
type rootFlags struct {
	configPath     string
	dotenvFile     string
	customEpoch    string
	nodeIDBits     uint8
	nodeID         uint64
	sequenceBits   uint8
	unusedBits     uint8
	microsTenPower uint8
	cooldownNs     uint64
	logLevel       string

	lookupEnv func(string) (string, bool)
}

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	f := &rootFlags{lookupEnv: lookupEnv}
	def := config.Default()

	root := &cobra.Command{
		Use:          "seqid",
		Short:        "Generate and inspect time-ordered 64-bit ids",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, configFlag, "", "config file (.yaml, .yml, .toml or .env)")
	pf.StringVar(&f.dotenvFile, dotenvFileFlag, ".env", "dotenv file, loaded if it exists")
	pf.StringVar(&f.customEpoch, customEpochFlag, def.CustomEpoch, "custom epoch (RFC 3339)")
	pf.Uint8Var(&f.nodeIDBits, nodeIDBitsFlag, def.NodeIDBits, "bits for the node id")
	pf.Uint64Var(&f.nodeID, nodeIDFlag, def.NodeID, "node id stamped into every id")
	pf.Uint8Var(&f.sequenceBits, sequenceBitsFlag, def.SequenceBits, "bits for the per-tick sequence")
	pf.Uint8Var(&f.unusedBits, unusedBitsFlag, def.UnusedBits, "leading bits kept zero")
	pf.Uint8Var(&f.microsTenPower, microsTenPowerFlag, def.MicrosTenPower, "tick length as a power of ten microseconds")
	pf.Uint64Var(&f.cooldownNs, cooldownNsFlag, def.CooldownNs, "first backoff sleep in nanoseconds")
	pf.StringVar(&f.logLevel, logLevelFlag, def.Log.Level, "log level (debug, info, warn, error)")

	root.AddCommand(newGenerateCmd(f))
	root.AddCommand(newDecodeCmd(f))
	root.AddCommand(newLayoutCmd(f))
	return root
}

// resolve layers defaults, config file, dotenv file, environment and flags.
func (f *rootFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.dotenvFile != "" {
		if _, err := os.Stat(f.dotenvFile); err == nil {
			if err := cfg.ApplyDotEnv(f.dotenvFile); err != nil {
				return config.Config{}, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}
	if f.lookupEnv != nil {
		if err := cfg.ApplyEnv(f.lookupEnv); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed(customEpochFlag) {
		cfg.CustomEpoch = f.customEpoch
	}
	if flags.Changed(nodeIDBitsFlag) {
		cfg.NodeIDBits = f.nodeIDBits
	}
	if flags.Changed(nodeIDFlag) {
		cfg.NodeID = f.nodeID
	}
	if flags.Changed(sequenceBitsFlag) {
		cfg.SequenceBits = f.sequenceBits
	}
	if flags.Changed(unusedBitsFlag) {
		cfg.UnusedBits = f.unusedBits
	}
	if flags.Changed(microsTenPowerFlag) {
		cfg.MicrosTenPower = f.microsTenPower
	}
	if flags.Changed(cooldownNsFlag) {
		cfg.CooldownNs = f.cooldownNs
	}
	if flags.Changed(logLevelFlag) {
		cfg.Log.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// logger builds the configured logger, falling back to a no-op one.
func logger(cfg config.Config) *zap.Logger {
	lg, err := cfg.Logger()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}
