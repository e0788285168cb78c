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
	"github.com/packagewjx/failure-insight/internal/server"
	"github.com/spf13/cobra"
)

const FlagPort = "port"

var port uint16

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the failure analysis HTTP server",
	Long: "The server accepts failure events and solution outcomes from the cluster\n" +
		"monitor and answers analysis, stats and remediation queries from external\n" +
		"tools. All state lives in the single database file given by --db-path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.NewServer(&server.ServerConfig{
			Port:   port,
			Engine: engineConfig(),
		})
		if err != nil {
			return err
		}

		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Uint16VarP(&port, FlagPort, "p", server.DefaultPort, "server listen port")
}
