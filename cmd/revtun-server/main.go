// Package main is the entry point for revtun-server, the public-facing half
// of the reverse TCP port-forwarder: it accepts the controller connection,
// the data channels, and the externally facing tunnel listeners, and
// optionally exposes the admin SSH console and HTTPS status endpoint.
//
// Usage:
//
//	revtun-server serve                 # start the rendezvous server
//	revtun-server user-mgmt             # interactive admin user management
package main

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"revtun/internal/admin"
	"revtun/internal/config"
	"revtun/internal/rendezvous"
	"revtun/internal/usermgmt"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "revtun-server",
		Short: "Reverse TCP port-forwarder rendezvous server",
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newUserMgmtCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var (
		controlAddr string
		adminSSH    string
		adminHTTPS  string
		maxTunnels  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rendezvous server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(controlAddr, adminSSH, adminHTTPS, maxTunnels)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&controlAddr, "control-addr", "0.0.0.0:9000", "address the control/data port listens on")
	flags.StringVar(&adminSSH, "admin-ssh-addr", "", "address for the admin SSH console (disabled if empty)")
	flags.StringVar(&adminHTTPS, "admin-https-addr", "", "address for the admin HTTPS status endpoint (disabled if empty)")
	flags.IntVar(&maxTunnels, "max-tunnels", rendezvous.DefaultMaxTunnels, "maximum concurrently active tunnels")

	return cmd
}

func runServe(controlAddr, adminSSH, adminHTTPS string, maxTunnels int) error {
	instanceID := uuid.New().String()
	log.Printf("starting revtun-server, instance_id=%s", instanceID)

	server := rendezvous.NewServer(maxTunnels)

	reg := prometheus.NewRegistry()
	server.Metrics = admin.NewPromMetrics(reg, instanceID)
	feed := admin.NewEventFeed(instanceID)
	server.Events = feed

	if adminSSH != "" {
		dbPath, err := config.GetUserDBPath()
		if err != nil {
			return fmt.Errorf("resolving admin user db path: %w", err)
		}
		hostKeyPath, err := config.GetAdminSSHHostKeyPath()
		if err != nil {
			return fmt.Errorf("resolving admin host key path: %w", err)
		}
		mgr := usermgmt.NewManager(dbPath)
		if err := mgr.CreateDefaultUserFromEnv(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		db := mgr.GetUserDB()

		console, err := admin.NewSSHConsole(db, hostKeyPath, server)
		if err != nil {
			return fmt.Errorf("starting admin SSH console: %w", err)
		}
		ln, err := net.Listen("tcp", adminSSH)
		if err != nil {
			return fmt.Errorf("binding admin SSH console: %w", err)
		}
		go console.Serve(ln)
	}

	if adminHTTPS != "" {
		certFile, keyFile, err := config.GetAdminTLSPaths()
		if err != nil {
			return fmt.Errorf("resolving admin TLS paths: %w", err)
		}
		status := admin.NewHTTPStatus(server, feed, reg)
		go func() {
			if err := status.ListenAndServeTLS(adminHTTPS, certFile, keyFile); err != nil {
				fmt.Fprintf(os.Stderr, "admin HTTPS endpoint stopped: %v\n", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", controlAddr)
	if err != nil {
		return fmt.Errorf("binding control address: %w", err)
	}
	return server.Serve(ln)
}

func newUserMgmtCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user-mgmt",
		Short: "Interactive admin user management",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := config.GetUserDBPath()
			if err != nil {
				return err
			}
			usermgmt.NewManager(dbPath).RunUserManagementCLI()
			return nil
		},
	}
	return cmd
}
