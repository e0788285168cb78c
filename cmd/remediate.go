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

var (
	remediateJob     string
	remediateProject string
)

// remediateCmd represents the remediate command
var remediateCmd = &cobra.Command{
	Use:   "remediate <failure-type>",
	Short: "Show ranked fix suggestions for a failure type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		suggestions, err := eng.Remediate(args[0], remediateJob, remediateProject)
		if err != nil {
			return err
		}

		fmt.Printf("Remediation suggestions for %s\n%s\n", suggestions.FailureType, suggestions.Description)
		if suggestions.NoKnownSolutions {
			fmt.Println("\nNo known solutions for this failure type.")
			return nil
		}

		if len(suggestions.RuleBased) > 0 {
			fmt.Println("\nRule-based solutions:")
			for i, s := range suggestions.RuleBased {
				fmt.Printf("  %d. %s", i+1, s.Description)
				if len(s.Params) > 0 {
					fmt.Printf(" %v", s.Params)
				}
				fmt.Println()
			}
		}

		if len(suggestions.Historical) > 0 {
			fmt.Println("\nHistorical solutions:")
			for i, s := range suggestions.Historical {
				fmt.Printf("  %d. %s (%.1f%% success, %d successes / %d failures)\n",
					i+1, s.Solution, s.SuccessRate*100, s.SuccessCount, s.FailureCount)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(remediateCmd)

	remediateCmd.Flags().StringVar(&remediateJob, "job", "", "job name, echoed back for traceability")
	remediateCmd.Flags().StringVar(&remediateProject, "project", "", "project, echoed back for traceability")
}
