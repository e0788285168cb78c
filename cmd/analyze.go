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

	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/spf13/cobra"
)

var (
	analyzeProject string
	analyzeDays    int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect failure patterns over the lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		report, err := eng.Analyze(analyzeProject, lookbackOrDefault(analyzeDays))
		if err != nil {
			return err
		}

		renderReport(report, analyzeProject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeProject, "project", "", "restrict the analysis to one project")
	analyzeCmd.Flags().IntVarP(&analyzeDays, "days", "d", 0, "days of history to analyze (default from config)")
}

func renderReport(report *core.Report, project string) {
	if project == "" {
		project = "all projects"
	}

	fmt.Println("Failure Analysis Report")
	fmt.Printf("Window: last %d days, project filter: %s\n\n", report.Summary.LookbackDays, project)
	fmt.Printf("Total failures:      %d\n", report.Summary.TotalFailures)
	fmt.Printf("Projects affected:   %d\n", report.Summary.ProjectsAffected)
	fmt.Printf("Unique failure types: %d\n", report.Summary.FailureTypes)
	if report.Truncated {
		fmt.Println("(result truncated at the scan-row cap; narrow the window for a full view)")
	}

	if len(report.Patterns) > 0 {
		fmt.Println("\nDetected patterns:")
		for _, p := range report.Patterns {
			fmt.Printf("  [%s] project %s: %d failures across %d jobs\n",
				p.Severity, p.Project, p.FailureCount, p.JobsAffected)
			for _, t := range p.TopFailureTypes {
				fmt.Printf("      %s: %d\n", t.FailureType, t.Count)
			}
		}
	}

	for _, n := range report.TemporalNotes {
		fmt.Printf("\n%s (%s)\n", n.Description, n.Hypothesis)
	}

	if len(report.HotNodes) > 0 {
		fmt.Println("\nProblematic nodes:")
		for _, n := range report.HotNodes {
			fmt.Printf("  [%s] %s: %d failures across %d jobs, %.0f%% failure rate\n",
				n.Severity, n.Node, n.FailureCount, n.JobsAffected, n.FailureRate*100)
		}
	}

	if len(report.ImageCorrelations) > 0 {
		fmt.Println("\nImage correlations:")
		for _, c := range report.ImageCorrelations {
			fmt.Printf("  %s: %d failures\n", c.Image, c.FailureCount)
			for _, e := range c.CommonErrors {
				fmt.Printf("      common error: %s\n", e)
			}
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
	if report.Summary.TotalFailures == 0 {
		fmt.Println("\nNo failures recorded in this window.")
	}
}
