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

	"github.com/spf13/cobra"
)

var outcomeSuccess bool

// outcomeCmd represents the outcome command
var outcomeCmd = &cobra.Command{
	Use:   "outcome <failure-type> <solution>",
	Short: "Record whether an applied solution worked",
	Long: "Feed the knowledge graph: after applying a suggested fix and observing the\n" +
		"job outcome, record success or failure so future suggestions rank better.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		if err := eng.RecordSolutionOutcome(args[0], args[1], outcomeSuccess); err != nil {
			return err
		}

		fmt.Println("outcome recorded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outcomeCmd)

	outcomeCmd.Flags().BoolVar(&outcomeSuccess, "success", false, "the solution fixed the failure")
}
