package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cmaudit/claimscope/internal/utils"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/report"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	      _       _                                   
	  ___| | __ _(_)_ __ ___  ___  ___ ___  _ __   ___ 
	 / __| |/ _' | | '_ ' _ \/ __|/ __/ _ \| '_ \ / _ \
	| (__| | (_| | | | | | | \__ \ (_| (_) | |_) |  __/
	 \___|_|\__,_|_|_| |_| |_|___/\___\___/| .__/ \___|
	                                       |_|         

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "claimscope",
	Short: "Reconciles a client's royalty claims against streaming platform catalogs.",
	Long: LOGO + `claimscope reads a client statement of claimed songs, searches every configured
streaming platform for the same tracks, narrows the results down to the client's
artists and albums, and reports which platform rows are claimed, unclaimed or
only share a track name.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.claimscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy for web sources (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("logfile", "", "Also write logs to this file")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to the results SQLite DB file (default from config: claimscope.sqlite)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Directory for report files (default from config: output)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".claimscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("claimscope")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Top-level defaults make every key visible to AutomaticEnv on Unmarshal.
	def := config.Default()
	viper.SetDefault("dbpath", def.DBPath())
	viper.SetDefault("output", def.OutputDir())
	viper.SetDefault("cache_ttl", def.CacheTTL())
	viper.SetDefault("na_marker", def.UnavailableMarker())
	viper.SetDefault("retry.attempts", def.Retry().Attempts)
	viper.SetDefault("retry.sleep", def.Retry().Sleep)
	viper.SetDefault("refine.max_iterations", def.Refine().MaxIterations)
	viper.SetDefault("refine.include_track_only", def.Refine().IncludeTrackOnly)
	viper.SetDefault("refine.include_level", def.Refine().IncludeLevel)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".claimscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Plain tables when the output is piped.
	if !utils.IsTerminal(os.Stdout) {
		report.TableStyle = table.StyleDefault
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)

	if logFile, _ := rootCmd.PersistentFlags().GetString("logfile"); logFile != "" {
		if _, err := utils.SetLogFile(logFile); err != nil {
			fmt.Printf("Error opening log file: %s\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig builds the run configuration from viper and the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	dbPath, _ := cmd.Flags().GetString("dbpath")
	outDir, _ := cmd.Flags().GetString("output")
	opts := []config.Option{config.WithDBPath(dbPath), config.WithOutputDir(outDir)}
	if f := cmd.Flags().Lookup("platforms"); f != nil && f.Changed {
		names, _ := cmd.Flags().GetStringSlice("platforms")
		opts = append(opts, config.WithPlatforms(names...))
	}
	return cfg.With(opts...)
}
