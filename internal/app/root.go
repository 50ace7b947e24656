package app

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ec2-pricing",
	Short: "ec2-pricing - EC2 instance type catalog and spot savings for Kubernetes node groups",
	Long: `
	ec2-pricing reads the EC2 instance types document into a catalog of
	instance type metadata, and compares the on-demand and spot prices of the
	node groups of a Kubernetes cluster against cheaper compatible types.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return SetLogLevel(viper.GetString("logLevel"), viper.GetBool("debug"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	setDefaults()
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (YAML). Settings can also be given as EC2PRICING_* environment variables.")
	rootCmd.PersistentFlags().StringP("source", "s", viper.GetString("source"),
		"URL or file path of the instance types document.")
	rootCmd.PersistentFlags().String("cache-dir", "",
		"Directory caching fetched documents. Ignored when --redis-addr is set.")
	rootCmd.PersistentFlags().Duration("cache-ttl", viper.GetDuration("cacheTTL"),
		"How long a cached document stays valid.")
	rootCmd.PersistentFlags().String("redis-addr", "",
		"redis:// URL of a redis instance caching fetched documents.")
	rootCmd.PersistentFlags().StringP("output", "o", TableFormat,
		"Select the desired output format. Allowed values: table, json, pretty.")
	rootCmd.PersistentFlags().StringP("logLevel", "l", "info",
		"Select the desired log level format. Allowed values: debug, info, warn, error, fatal.")
	rootCmd.PersistentFlags().Bool("debug", false, "Use debug mode, same as --logLevel debug.")

	viper.BindPFlag("source", rootCmd.PersistentFlags().Lookup("source"))
	viper.BindPFlag("cacheDir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("cacheTTL", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	viper.BindPFlag("redisAddr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(instanceTypesCmd)
	rootCmd.AddCommand(evaluateCmd)
}

// Execute runs the command line.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("EC2PRICING")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		logrus.Fatalf("Error reading config file %s: %v", cfgFile, err)
	}
	logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
}
