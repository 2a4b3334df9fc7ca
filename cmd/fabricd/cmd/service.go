/*
Copyright © 2025 Mulga Defense Corporation

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
	"github.com/spf13/viper"

	"github.com/mulgadc/fabricd/fabric/ovnpush"
	"github.com/mulgadc/fabricd/fabric/svc"
	"github.com/mulgadc/fabricd/hive/services/nats"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage fabricd services",
}

var natsCmd = &cobra.Command{
	Use:   "nats",
	Short: "Manage the nats service",
}

var ovnpushCmd = &cobra.Command{
	Use:   "ovnpush",
	Short: "Manage the ovnpush (OVN downstream push) service",
}

var natsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		service, err := svc.New("nats", &nats.Config{
			ConfigFile: viper.GetString("config"),
			Port:       viper.GetInt("port"),
			Host:       viper.GetString("host"),
			Debug:      viper.GetBool("debug"),
			DataDir:    viper.GetString("data-dir"),
			JetStream:  viper.GetBool("jetstream"),
		})
		if err != nil {
			fmt.Println("Error starting nats service:", err)
			return
		}
		service.Start()
		fmt.Println("nats service started")
	},
}

var natsStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		service, err := svc.New("nats", &nats.Config{})
		if err != nil {
			fmt.Println("Error stopping nats service:", err)
			return
		}
		service.Stop()
		fmt.Println("nats service stopped")
	},
}

var natsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("nats service status: ...")
	},
}

var ovnpushStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ovnpush service",
	Run: func(cmd *cobra.Command, args []string) {
		if appConfig == nil {
			fmt.Println("configuration not loaded")
			return
		}

		natsHost := viper.GetString("nats-host")
		if natsHost == "" {
			natsHost = appConfig.NATS.Host
		}
		natsToken := viper.GetString("nats-token")
		if natsToken == "" {
			natsToken = appConfig.NATS.Token
		}
		baseDir := viper.GetString("base-dir")
		if baseDir == "" {
			baseDir = appConfig.BaseDir
		}

		service, err := svc.New("ovnpush", &ovnpush.Config{
			NatsHost:  natsHost,
			NatsToken: natsToken,
			OVNNBAddr: appConfig.OVN.NBAddr,
			BaseDir:   baseDir,
			Debug:     appConfig.Debug,
		})
		if err != nil {
			fmt.Println("Error starting ovnpush service:", err)
			return
		}
		if _, err := service.Start(); err != nil {
			fmt.Println("Error starting ovnpush service:", err)
			return
		}
		fmt.Println("ovnpush service started")
	},
}

var ovnpushStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the ovnpush service",
	Run: func(cmd *cobra.Command, args []string) {
		service, err := svc.New("ovnpush", &ovnpush.Config{BaseDir: viper.GetString("base-dir")})
		if err != nil {
			fmt.Println("Error stopping ovnpush service:", err)
			return
		}
		service.Stop()
		fmt.Println("ovnpush service stopped")
	},
}

var ovnpushStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the ovnpush service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ovnpush service status: ...")
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(natsCmd)
	natsCmd.PersistentFlags().Int("port", 4222, "NATS server port")
	viper.BindPFlag("port", natsCmd.PersistentFlags().Lookup("port"))
	natsCmd.PersistentFlags().String("host", "0.0.0.0", "NATS server host")
	viper.BindPFlag("host", natsCmd.PersistentFlags().Lookup("host"))
	natsCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	viper.BindPFlag("debug", natsCmd.PersistentFlags().Lookup("debug"))
	natsCmd.PersistentFlags().String("data-dir", "", "NATS data directory")
	viper.BindPFlag("data-dir", natsCmd.PersistentFlags().Lookup("data-dir"))
	natsCmd.PersistentFlags().Bool("jetstream", true, "enable JetStream")
	viper.BindPFlag("jetstream", natsCmd.PersistentFlags().Lookup("jetstream"))
	natsCmd.AddCommand(natsStartCmd, natsStopCmd, natsStatusCmd)

	serviceCmd.AddCommand(ovnpushCmd)
	ovnpushCmd.AddCommand(ovnpushStartCmd, ovnpushStopCmd, ovnpushStatusCmd)
}
