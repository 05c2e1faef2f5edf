package mossgarden

import (
	"os"

	"github.com/spf13/viper"
)

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/mossgarden/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		LogCLI(err.Error(), 4)
	}
	setDefaults(config)
	// Create our working directory and config file if not exist
	initRootDir(config)
	if err := Touch(config.GetString("rootDir") + "config.yaml"); err != nil {
		LogCLI(err.Error(), 0)
	}
	err = config.WriteConfig()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
}

func setDefaults(config *viper.Viper) {
	config.SetDefault("firstRun", true)
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("logActors", true)
	config.SetDefault("devMode", false)
	config.SetDefault("websocketAddr", "127.0.0.1:1032")
	config.SetDefault("relaysMust", []string{"wss://nostr.688.org"})
	config.SetDefault("relaysOptional", []string{})

	// oracles are hex encoded x-only pubkeys allowed to sign location proofs
	config.SetDefault("oracles", []string{})
	config.SetDefault("proofFreshness", 3600)
	config.SetDefault("proofClockSkew", 300)

	config.SetDefault("harvestInterval", 3600)
	config.SetDefault("growthPeriod", 3600)
	config.SetDefault("maxBaseGrowth", 24)
	config.SetDefault("sporeMinMoss", 50)
	config.SetDefault("maxSpores", 3)
	config.SetDefault("maxGenomeRadius", 100000)
	config.SetDefault("maxTaxPermille", 250)
	config.SetDefault("ignitionBalances", map[string]interface{}{})
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			LogCLI(err, 0)
		}
	}
}
