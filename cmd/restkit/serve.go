// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rivaas.dev/restkit/app"
	"rivaas.dev/restkit/config"
	"rivaas.dev/restkit/internal/catalogue"
	"rivaas.dev/restkit/logging"
)

type serveFlags struct {
	config    string
	envPrefix string
	addr      string
	consulKey string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Configuration file (YAML, TOML or JSON)")
	cmd.Flags().StringVar(&f.envPrefix, "env-prefix", "RESTKIT_", "Prefix of configuration environment variables")
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address, overrides server.address")
	cmd.Flags().StringVar(&f.consulKey, "consul-key", "", "Consul KV key read when CONSUL_HTTP_ADDR is set")
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue API",
		Long: `Serve the catalogue API until SIGINT or SIGTERM.

Settings are read from the configuration file, then from environment
variables such as RESTKIT_SERVER_ADDRESS or RESTKIT_SERVER_WORKERS_CHILD,
then from Consul.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}

			return a.Run(ctx, flags.addr)
		},
	}
	flags.register(cmd)

	return cmd
}

func routesCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), flags, app.WithLogger(logging.Noop()), app.WithoutBanner())
			if err != nil {
				return err
			}
			a.PrintRoutes(cmd.OutOrStdout())

			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

// buildApp loads settings and mounts the catalogue. extra options are
// applied after the settings.
func buildApp(ctx context.Context, flags serveFlags, extra ...app.Option) (*app.App, error) {
	var sources []config.Option
	if flags.consulKey != "" {
		sources = append(sources, config.WithConsul(flags.consulKey))
	}
	settings, err := app.LoadConfig(ctx, flags.config, flags.envPrefix, sources...)
	if err != nil {
		return nil, err
	}
	if settings.Service.Version == "dev" {
		settings.Service.Version = version
	}
	opts, err := settings.Options()
	if err != nil {
		return nil, err
	}

	a, err := app.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	if err := catalogue.Register(a.Router().Root(), catalogue.NewStore(), catalogue.WithMetrics(a.Metrics())); err != nil {
		return nil, fmt.Errorf("failed to register catalogue: %w", err)
	}

	return a, nil
}
