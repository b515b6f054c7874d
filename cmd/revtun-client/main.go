// Package main is the entry point for revtun-client, the private-network
// half of the reverse TCP port-forwarder: it dials the server's control
// port, maintains the client-local Mapping registry, and on each OPEN dials
// a data channel back to the server and the private target it forwards to.
//
// Usage:
//
//	revtun-client connect <server_host:port>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"revtun/internal/rfclient"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "revtun-client",
		Short: "Reverse TCP port-forwarder client",
	}
	root.AddCommand(&cobra.Command{
		Use:   "connect <server_host:port>",
		Short: "Connect to a revtun rendezvous server and expose local ports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(args[0])
		},
	})
	return root
}

func runConnect(serverAddr string) error {
	log.Printf("starting revtun-client, instance_id=%s", uuid.New().String())

	mappings := rfclient.NewMappingRegistry(rfclient.DefaultMaxMappings)
	ctrl, err := rfclient.Dial(serverAddr, mappings)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", serverAddr, err)
	}
	defer ctrl.Shutdown()

	fmt.Printf("Connected to server %s\n", serverAddr)
	go ctrl.Run()

	rfclient.RunConsole(ctrl, os.Stdin, os.Stdout)
	return nil
}
