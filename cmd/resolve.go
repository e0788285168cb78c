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
	"strconv"

	"github.com/spf13/cobra"
)

var resolutionType string

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <event-id>",
	Short: "Mark a recorded failure event as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("event id must be a number, got %q", args[0])
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		if err := eng.Resolve(uint(id), resolutionType); err != nil {
			return err
		}

		fmt.Printf("event #%d marked resolved\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolutionType, "type", "manual", "how the failure was resolved")
}
