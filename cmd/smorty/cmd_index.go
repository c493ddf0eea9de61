package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"smorty/internal/abiutil"
	"smorty/internal/apperr"
	"smorty/internal/config"
	"smorty/internal/indexer"
	"smorty/internal/irstore"
)

func indexCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest confirmed chain logs for every generated event IR, polling until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := rootContext()
			defer cancel()

			pairs, clients, err := buildPairs(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				for _, c := range clients {
					c.Close()
				}
			}()

			ix := indexer.New(db, clients, indexer.Config{}, log)
			for {
				if err := ix.RunOnce(ctx, pairs); err != nil {
					return err
				}
				if once {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(15 * time.Second):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "ingest up to the current confirmed head, then exit")
	return cmd
}

// buildPairs resolves every configured (contract, event) spec into an
// indexer.Pair, dialing one RPC client per distinct chain.
func buildPairs(ctx context.Context, cfg *config.Config) ([]indexer.Pair, map[string]indexer.RPCClient, error) {
	store := irstore.New(baseDir())
	clients := map[string]indexer.RPCClient{}
	var pairs []indexer.Pair

	for contractID, c := range cfg.Contracts {
		if _, ok := clients[c.Chain]; !ok {
			url, ok := cfg.Chains[c.Chain]
			if !ok {
				return nil, nil, apperr.New(apperr.KindConfig, "no RPC url configured for chain "+c.Chain)
			}
			client, err := indexer.Dial(ctx, url)
			if err != nil {
				return nil, nil, err
			}
			clients[c.Chain] = client
		}

		contract, err := abiutil.Load(c.ABIPath)
		if err != nil {
			return nil, nil, err
		}

		for _, spec := range c.Specs {
			eventIR, err := store.GetEvent(contractID, spec.Name)
			if err != nil {
				return nil, nil, err
			}
			pairs = append(pairs, indexer.Pair{
				Chain:           c.Chain,
				ContractID:      contractID,
				ContractAddress: c.Address,
				ParsedABI:       contract.Parsed,
				EventIR:         eventIR,
			})
		}
	}
	return pairs, clients, nil
}
