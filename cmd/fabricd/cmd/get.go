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
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mulgadc/fabricd/fabric/store"
	"github.com/mulgadc/fabricd/fabric/vpcstore"
	"github.com/mulgadc/fabricd/hive/utils"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Display fabricd resources",
	Long:  `Display VPCs, subnets, and routers known to the fabric control plane.`,
}

var getVPCsCmd = &cobra.Command{
	Use:   "vpcs",
	Short: "Display VPCs in a project",
	Run:   runGetVPCs,
}

var getSubnetsCmd = &cobra.Command{
	Use:   "subnets",
	Short: "Display subnets in a VPC",
	Run:   runGetSubnets,
}

var getRoutersCmd = &cobra.Command{
	Use:   "routers",
	Short: "Display routers in a VPC",
	Run:   runGetRouters,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.AddCommand(getVPCsCmd, getSubnetsCmd, getRoutersCmd)

	getCmd.PersistentFlags().String("project-id", "", "project id (required for \"get vpcs\")")
	getCmd.PersistentFlags().String("vpc-id", "", "VPC id (required for \"get subnets\"/\"get routers\")")
	viper.BindPFlag("project-id", getCmd.PersistentFlags().Lookup("project-id"))
	viper.BindPFlag("vpc-id", getCmd.PersistentFlags().Lookup("vpc-id"))
}

// connectStore opens a vpcstore.Store against the configured NATS host,
// mirroring cmd/hive/cmd/get.go's loadConfigAndConnect.
func connectStore() (*vpcstore.Store, *nats.Conn, error) {
	natsHost := viper.GetString("nats-host")
	if natsHost == "" && appConfig != nil {
		natsHost = appConfig.NATS.Host
	}
	natsToken := viper.GetString("nats-token")
	if natsToken == "" && appConfig != nil {
		natsToken = appConfig.NATS.Token
	}

	nc, err := utils.ConnectNATS(natsHost, natsToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	s, err := vpcstore.New(js, nil)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	return s, nc, nil
}

func runGetVPCs(cmd *cobra.Command, args []string) {
	projectID := viper.GetString("project-id")
	if projectID == "" {
		fmt.Fprintln(os.Stderr, "Error: --project-id is required")
		os.Exit(1)
	}

	s, nc, err := connectStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	vpcs, _, err := s.ListVPCs(context.Background(), "cli", projectID, store.PageParams{KeyColumn: "name"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tableData := pterm.TableData{
		{"ID", "NAME", "VNI", "IPV6 PREFIX", "DNS NAME"},
	}
	for _, v := range vpcs {
		tableData = append(tableData, []string{
			v.ID, v.Name, fmt.Sprintf("%d", v.VNI), v.IPv6Prefix, v.DNSName,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(tableData).Render()
}

func runGetSubnets(cmd *cobra.Command, args []string) {
	vpcID := viper.GetString("vpc-id")
	if vpcID == "" {
		fmt.Fprintln(os.Stderr, "Error: --vpc-id is required")
		os.Exit(1)
	}

	s, nc, err := connectStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	subnets, _, err := s.ListSubnets(context.Background(), "cli", vpcID, store.PageParams{KeyColumn: "name"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tableData := pterm.TableData{
		{"ID", "NAME", "IPV4 BLOCK", "IPV6 BLOCK", "CUSTOM ROUTER"},
	}
	for _, s := range subnets {
		router := s.CustomRouterID
		if router == "" {
			router = "-"
		}
		tableData = append(tableData, []string{s.ID, s.Name, s.IPv4Block, s.IPv6Block, router})
	}

	pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(tableData).Render()
}

func runGetRouters(cmd *cobra.Command, args []string) {
	vpcID := viper.GetString("vpc-id")
	if vpcID == "" {
		fmt.Fprintln(os.Stderr, "Error: --vpc-id is required")
		os.Exit(1)
	}

	s, nc, err := connectStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	routers, _, err := s.ListRouters(context.Background(), "cli", vpcID, store.PageParams{KeyColumn: "name"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tableData := pterm.TableData{
		{"ID", "NAME", "KIND"},
	}
	for _, r := range routers {
		tableData = append(tableData, []string{r.ID, r.Name, string(r.Kind)})
	}

	pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(tableData).Render()
}
