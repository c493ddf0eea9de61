package main

import (
	"context"

	"github.com/spf13/cobra"

	"smorty/internal/abiutil"
	"smorty/internal/aiclient"
	"smorty/internal/endpointgen"
	"smorty/internal/irstore"
	"smorty/internal/specgen"
)

func genSpecCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "gen-spec",
		Short: "Generate event IRs for every contract/spec in config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			client := aiclient.New(aiclient.Config{
				Provider: cfg.AI.Provider, Model: cfg.AI.Model,
				APIKey: cfg.AI.APIKey, BaseURL: cfg.AI.APIBase, Temperature: cfg.AI.Temperature,
			}, log)
			store := irstore.New(baseDir())
			ctx := context.Background()

			for contractID, c := range cfg.Contracts {
				contract, err := abiutil.Load(c.ABIPath)
				if err != nil {
					return err
				}
				for _, spec := range c.Specs {
					eventIR, err := specgen.Generate(ctx, client, specgen.Request{
						ContractID: contractID,
						Chain:      c.Chain,
						Address:    c.Address,
						StartBlock: spec.StartBlock,
						EventName:  spec.Name,
						TaskText:   spec.Task,
						Contract:   contract,
						ModelID:    cfg.AI.Model,
					})
					if err != nil {
						return err
					}
					if err := store.PutEvent(eventIR, force); err != nil {
						return err
					}
					log.Infow("generated event IR", "contract", contractID, "event", spec.Name, "table", eventIR.TableSchema.TableName)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing IR even if its prompt hash differs")
	return cmd
}

func genEndpointCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "gen-endpoint",
		Short: "Generate endpoint IRs for every spec's endpoint in config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			client := aiclient.New(aiclient.Config{
				Provider: cfg.AI.Provider, Model: cfg.AI.Model,
				APIKey: cfg.AI.APIKey, BaseURL: cfg.AI.APIBase, Temperature: cfg.AI.Temperature,
			}, log)
			store := irstore.New(baseDir())
			ctx := context.Background()

			events, err := store.ListEvents()
			if err != nil {
				return err
			}
			catalog := make([]endpointgen.TableCatalogEntry, 0, len(events))
			for _, e := range events {
				catalog = append(catalog, endpointgen.TableCatalogEntry{
					TableName: e.TableSchema.TableName,
					Columns:   e.TableSchema.Columns,
				})
			}

			for contractID, c := range cfg.Contracts {
				for _, spec := range c.Specs {
					endpoint, err := endpointgen.Generate(ctx, client, endpointgen.Request{
						EndpointPath:    spec.Endpoint,
						TaskText:        spec.Task,
						AvailableTables: catalog,
						ModelID:         cfg.AI.Model,
					})
					if err != nil {
						return err
					}
					if err := store.PutEndpoint(endpoint, force); err != nil {
						return err
					}
					log.Infow("generated endpoint IR", "contract", contractID, "path", endpoint.EndpointPath)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing IR even if its prompt hash differs")
	return cmd
}
