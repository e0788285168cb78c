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
	"time"

	"github.com/packagewjx/failure-insight/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var purgeOlderThan time.Duration

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently delete failure events older than the retention horizon",
	Long: "Retention is never automatic: the event log only shrinks when this command\n" +
		"is run explicitly. Solutions and correlations are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if purgeOlderThan <= 0 {
			return fmt.Errorf("retention horizon must be positive, got %s", purgeOlderThan)
		}

		dao, err := store.NewDao(viper.GetString(FlagDBPath), 0)
		if err != nil {
			return err
		}

		purged, err := dao.PurgeEventsBefore(time.Now().Add(-purgeOlderThan))
		if err != nil {
			return err
		}

		fmt.Printf("purged %d events older than %s\n", purged, purgeOlderThan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 90*24*time.Hour,
		"delete events older than this duration")
}
