// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package main implements the picker-sync command: a daemon syncing media
// providers into the local picker database, plus a one-shot sync mode for
// debugging.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/DataDog/picker-sync/pkg/config"
	"github.com/DataDog/picker-sync/pkg/picker/db"
	"github.com/DataDog/picker-sync/pkg/picker/events"
	"github.com/DataDog/picker-sync/pkg/picker/notify"
	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
	picksync "github.com/DataDog/picker-sync/pkg/picker/sync"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

var (
	// version is set at build time.
	version = "dev"

	cfgPath        string
	localURL       string
	cloudProviders []string
)

func main() {
	root := &cobra.Command{
		Use:          "picker-sync",
		Short:        "Sync media providers into the picker database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "cfgpath", "c", "", "path to the configuration file")
	root.PersistentFlags().StringVar(&localURL, "local-url", "http://127.0.0.1:8770",
		"endpoint of the local media provider")
	root.PersistentFlags().StringArrayVar(&cloudProviders, "cloud-provider", nil,
		"cloud provider spec: authority=A,package=P,uid=N,url=U (repeatable)")

	root.AddCommand(runCommand(), syncCommand(), statusCommand(), versionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon",
		RunE: func(*cobra.Command, []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			scheduler := picksync.NewScheduler(c, config.C.SyncInterval())
			scheduler.Start(ctx)

			// Kick an initial sync instead of waiting a full interval.
			if err := c.SyncAllMedia(ctx); err != nil {
				log.Errorf("initial sync failed: %v", err) //nolint:errcheck
			}

			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}
}

func syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync of all providers and print the controller state",
		RunE: func(*cobra.Command, []string) error {
			c, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := c.SyncAllMedia(context.Background()); err != nil {
				log.Errorf("sync failed: %v", err) //nolint:errcheck
			}
			c.Dump(os.Stdout)
			return nil
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the controller state without syncing",
		RunE: func(*cobra.Command, []string) error {
			c, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			c.Dump(os.Stdout)
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("picker-sync %s\n", version)
		},
	}
}

// setup loads the config, opens the stores and builds the process-wide sync
// controller. The returned cleanup closes everything in reverse order.
func setup() (*picksync.Controller, func(), error) {
	if err := config.Load(cfgPath); err != nil {
		return nil, nil, errors.Wrap(err, "loading configuration")
	}
	log.SetupDefaultLogger(config.C.LogLevel())

	facade, err := db.Open(config.C.PickerDBPath(), provider.LocalAuthority)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening picker db")
	}
	store, err := prefs.Open(config.C.PrefsDBPath())
	if err != nil {
		facade.Close() //nolint:errcheck
		return nil, nil, errors.Wrap(err, "opening prefs db")
	}

	registry := provider.NewRegistry(config.C,
		provider.Info{
			Authority:   provider.LocalAuthority,
			PackageName: "com.android.providers.media",
			UID:         os.Getuid(),
		},
		provider.NewRemoteProvider(localURL))

	for _, spec := range cloudProviders {
		info, url, err := parseProviderSpec(spec)
		if err != nil {
			store.Close()  //nolint:errcheck
			facade.Close() //nolint:errcheck
			return nil, nil, err
		}
		registry.Register(info, provider.NewRemoteProvider(url))
	}

	c, err := picksync.Initialize(picksync.Deps{
		Config:   config.C,
		Registry: registry,
		DB:       facade,
		Prefs:    store,
		Hub:      notify.NewHub(),
		Events:   events.NewReporter(config.C.StatsdAddr()),
	})
	if err != nil {
		store.Close()  //nolint:errcheck
		facade.Close() //nolint:errcheck
		return nil, nil, errors.Wrap(err, "initializing sync controller")
	}

	cleanup := func() {
		store.Close()  //nolint:errcheck
		facade.Close() //nolint:errcheck
		log.Flush()
	}
	return c, cleanup, nil
}

// parseProviderSpec parses "authority=A,package=P,uid=N,url=U".
func parseProviderSpec(spec string) (provider.Info, string, error) {
	var (
		info provider.Info
		url  string
	)
	for _, part := range strings.Split(spec, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return provider.Info{}, "", errors.Errorf("malformed provider spec %q", spec)
		}
		switch key {
		case "authority":
			info.Authority = value
		case "package":
			info.PackageName = value
		case "uid":
			n, err := strconv.Atoi(value)
			if err != nil {
				return provider.Info{}, "", errors.Wrapf(err, "provider spec %q", spec)
			}
			info.UID = n
		case "url":
			url = value
		default:
			return provider.Info{}, "", errors.Errorf("unknown provider spec key %q", key)
		}
	}
	if info.Authority == "" || url == "" {
		return provider.Info{}, "", errors.Errorf("provider spec %q needs at least authority and url", spec)
	}
	return info, url, nil
}
