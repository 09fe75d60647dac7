// Command facet is the diamond-painting project tracker CLI. It hosts
// the filterable dashboard over an embedded SQLite store, serves the
// real-time WebSocket feed, and offers quick listing and mutation
// commands.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "facet",
	Short: "Track diamond-painting projects with a filterable dashboard",
	Long: `facet tracks diamond-painting craft projects: what's on the
wishlist, in the stash, on the canvas and on the wall.

The dashboard filters by status, company, artist, drill shape, finish
year, tags and free text, remembers where you left off per user, and
streams live updates over WebSocket.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.facet/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (default is $HOME/.facet/facet.db)")
	rootCmd.PersistentFlags().String("user", "", "acting user id")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".facet"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FACET")
	viper.AutomaticEnv()

	// Missing config files are fine; flags and env cover everything.
	_ = viper.ReadInConfig()

	if viper.GetString("db") == "" {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.SetDefault("db", filepath.Join(home, ".facet", "facet.db"))
	}
	if viper.GetString("user") == "" {
		viper.SetDefault("user", os.Getenv("USER"))
	}
	viper.SetDefault("metadata_file", filepath.Join(filepath.Dir(viper.GetString("db")), "reference.yaml"))
	viper.SetDefault("log_file", filepath.Join(filepath.Dir(viper.GetString("db")), "facet.log"))
	viper.SetDefault("dashboard_port", 8423)
}

// initLogging routes the shared logger to a rotated file so CLI output
// stays clean. Commands print results to stdout; diagnostics go here.
func initLogging() {
	logger = log.New(&lumberjack.Logger{
		Filename:   viper.GetString("log_file"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, "[facet] ", log.LstdFlags)
}

func actingUser() string {
	user := viper.GetString("user")
	if user == "" {
		fmt.Fprintln(os.Stderr, "Error: no user id; pass --user or set FACET_USER")
		os.Exit(1)
	}
	return user
}
