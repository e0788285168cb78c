/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/packagewjx/failure-insight/internal/engine"
	api "github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	FlagDBPath           = "db-path"
	FlagLookbackDays     = "lookback-days"
	FlagPatternThreshold = "pattern-threshold"
	FlagMinSampleSize    = "min-sample-size"
	FlagAllowedProjects  = "allowed-projects"
	FlagMaxScanRows      = "max-scan-rows"
	FlagDedupWindow      = "dedup-window"
	FlagRulesFile        = "rules-file"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "failure-insight",
	Short: "Failure pattern analysis and remediation knowledge engine",
	Long: "failure-insight records structured failure events from a cluster workload\n" +
		"scheduler, detects recurring failure patterns, correlates failures with nodes,\n" +
		"container images and projects, and ranks remediation suggestions by their\n" +
		"historically recorded success.",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.failure-insight.yaml)")
	rootCmd.PersistentFlags().String(FlagDBPath, engine.DefaultDBPath,
		"path to the failure history database; keep it on durable storage in production")
	rootCmd.PersistentFlags().Int(FlagLookbackDays, engine.DefaultLookbackDays,
		"default analysis window in days")
	rootCmd.PersistentFlags().Int(FlagPatternThreshold, 0,
		"minimum occurrences before a project pattern is reported")
	rootCmd.PersistentFlags().Int(FlagMinSampleSize, 0,
		"minimum recorded outcomes before a historical solution is surfaced")
	rootCmd.PersistentFlags().StringSlice(FlagAllowedProjects, nil,
		"project whitelist; empty or '*' allows every project")
	rootCmd.PersistentFlags().Int(FlagMaxScanRows, engine.DefaultMaxScanRows,
		"maximum event rows scanned per analysis query")
	rootCmd.PersistentFlags().Duration(FlagDedupWindow, engine.DefaultDedupWindow,
		"window within which identical failures are deduplicated; 0 disables")
	rootCmd.PersistentFlags().String(FlagRulesFile, "",
		"remediation rule table YAML; empty uses the built-in rules")

	for _, flag := range []string{FlagDBPath, FlagLookbackDays, FlagPatternThreshold,
		FlagMinSampleSize, FlagAllowedProjects, FlagMaxScanRows, FlagDedupWindow, FlagRulesFile} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".failure-insight")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func engineConfig() *engine.EngineConfig {
	return &engine.EngineConfig{
		DBPath:           viper.GetString(FlagDBPath),
		LookbackDays:     viper.GetInt(FlagLookbackDays),
		PatternThreshold: viper.GetInt(FlagPatternThreshold),
		MinSampleSize:    viper.GetInt(FlagMinSampleSize),
		AllowedProjects:  viper.GetStringSlice(FlagAllowedProjects),
		MaxScanRows:      viper.GetInt(FlagMaxScanRows),
		DedupWindow:      viper.GetDuration(FlagDedupWindow),
		RulesFile:        viper.GetString(FlagRulesFile),
	}
}

func newEngine() (api.API, error) {
	return engine.New(engineConfig())
}

func lookbackOrDefault(days int) int {
	if days != 0 {
		return days
	}
	return viper.GetInt(FlagLookbackDays)
}
