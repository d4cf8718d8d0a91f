// AngelaMos | 2026
// recompute.go

package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ccdexplorer/ccdexplorer-api/internal/apikey"
	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/user"
)

func newRecomputeCmd(configPath *string) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rescan an account's payments and recompute its plan end date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accountID == "" {
				return errors.New("--account is required")
			}

			return withDatabase(cmd, *configPath, func(cfg *config.Config, db *core.Database) error {
				redis, err := core.NewRedis(cmd.Context(), cfg.Redis)
				if err != nil {
					return err
				}
				defer func() {
					_ = redis.Close() //nolint:errcheck // one-shot command
				}()

				docs := db.Documents()
				keys := apikey.NewService(
					apikey.NewRepository(docs),
					cfg.Explorer.APIURL,
					cfg.Explorer.KeysChannel,
					redis,
					nil,
				)

				billingSvc := newBilling(cfg, docs, user.NewRepository(db.DB), keys, nil, nil)

				sub, err := billingSvc.Refresh(cmd.Context(), accountID)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sub)
			})
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "api account id to recompute")

	return cmd
}
