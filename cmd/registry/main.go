//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Command registry runs the service directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	registry "trpc.group/trpc-go/trpc-registry"
	"trpc.group/trpc-go/trpc-registry/log"
)

var rootCmd = &cobra.Command{
	Version: registry.Version(),

	Use:   "registry",
	Short: "A service directory answering endpoint lookups by group, station and set",

	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.String("conf", registry.ServerConfigPath, "server config path")
	flags.Bool("check", false, "validate the config and exit")
	rootCmd.Flags().AddFlagSet(flags)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("registry")
	viper.AutomaticEnv()

	_ = viper.BindPFlags(flags)
}

func run(ctx context.Context) error {
	registry.ServerConfigPath = viper.GetString("conf")
	cfg, err := registry.LoadConfig(registry.ServerConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	registry.SetGlobalConfig(cfg)
	if viper.GetBool("check") {
		fmt.Printf("config %s is valid\n", cfg.Path())
		return nil
	}

	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warnf("set GOMAXPROCS: %v", err)
	}
	r, err := registry.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Infof("registry %s started, pid %d", registry.Version(), os.Getpid())
	if err := r.Run(ctx); err != nil {
		log.Errorf("registry stopped: %v", err)
		return err
	}
	log.Infof("registry stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
