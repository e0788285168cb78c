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

var recordInput core.FailureEventInput

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one failure event",
	Long: "Record a failure event directly into the history database. The cluster\n" +
		"monitor normally pushes events through the HTTP server instead; this command\n" +
		"exists for backfills and testing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		receipt, err := eng.RecordFailure(&recordInput)
		if err != nil {
			return err
		}

		if receipt.Duplicate {
			fmt.Printf("duplicate of event #%d, nothing recorded\n", receipt.EventId)
		} else {
			fmt.Printf("recorded event #%d\n", receipt.EventId)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&recordInput.Project, "project", "", "project the job belongs to (required)")
	recordCmd.Flags().StringVar(&recordInput.JobName, "job", "", "failed job name (required)")
	recordCmd.Flags().StringVar(&recordInput.FailureType, "failure-type", "", "failure classification, e.g. OOMKilled (required)")
	recordCmd.Flags().StringVar(&recordInput.Phase, "phase", "", "raw lifecycle phase")
	recordCmd.Flags().StringVar(&recordInput.PodName, "pod", "", "pod name")
	recordCmd.Flags().StringVar(&recordInput.NodeName, "node", "", "node the pod ran on")
	recordCmd.Flags().StringVar(&recordInput.ContainerImage, "image", "", "container image")
	recordCmd.Flags().StringVar(&recordInput.ErrorMessage, "error", "", "error message")
	recordCmd.Flags().StringVar(&recordInput.LogsSnippet, "logs", "", "log snippet")
	recordCmd.Flags().StringVar(&recordInput.EventsSnippet, "events", "", "cluster events snippet")
	recordCmd.Flags().IntVar(&recordInput.GpuCount, "gpus", 0, "requested GPU count")
	recordCmd.Flags().StringVar(&recordInput.MemoryRequest, "memory", "", "memory request string")
	recordCmd.Flags().StringVar(&recordInput.CpuRequest, "cpu", "", "cpu request string")
}
