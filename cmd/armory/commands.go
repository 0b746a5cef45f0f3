package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/armory/internal/app"
	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
)

// withApp builds the App for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	configPath, _ := cmd.Flags().GetString("config")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

// readCharacters decodes a JSON array of character identities.
func readCharacters(r io.Reader) ([]models.CharacterIdentity, error) {
	var chars []models.CharacterIdentity
	if err := json.NewDecoder(r).Decode(&chars); err != nil {
		return nil, fmt.Errorf("failed to decode characters: %w", err)
	}
	if len(chars) == 0 {
		return nil, errors.New("no characters to import")
	}
	return chars, nil
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-enrich every stored character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Sync.ResyncAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newUpdateUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-user <user-id>",
		Short: "Force an update of one user's characters",
		Long: `Force an update of one user's characters.

Refused while the previous forced update is still cooling down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Sync.ForceUpdate(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <user-id>",
		Short: "Import characters for a user from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			region, _ := cmd.Flags().GetString("region")
			file, _ := cmd.Flags().GetString("file")

			in := cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			chars, err := readCharacters(in)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Sync.ImportCharacters(ctx, userID, region, chars)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().String("region", "", "Battle.net region of the characters")
	cmd.Flags().String("file", "-", "JSON array of characters, - for stdin")
	cmd.MarkFlagRequired("region")
	return cmd
}

func newCharactersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "characters <user-id>",
		Short: "List the characters on a user's Battle.net account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			region, _ := cmd.Flags().GetString("region")
			namespaces, _ := cmd.Flags().GetStringSlice("namespace")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				chars, err := a.Sync.FetchCharacters(ctx, userID, region, namespaces)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), chars)
			})
		},
	}
	cmd.Flags().String("region", "", "region (default: the profile's region)")
	cmd.Flags().StringSlice("namespace", nil, "game namespaces (default: from config)")
	return cmd
}

func newEvictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Delete profiles that have not been updated recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Sync.EvictStaleProfiles(ctx)
				if report != nil {
					if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func newInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Show tracked raids and dungeons grouped by expansion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if refresh {
					if _, err := a.Sync.RefreshInstances(ctx); err != nil {
						return err
					}
				}
				groups, err := a.Sync.Instances(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), groups)
			})
		},
	}
	cmd.Flags().Bool("refresh", false, "reload the journal from Battle.net first")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				common.PrintBanner(cmd.OutOrStdout(), a.Config, a.Logger)

				a.StartScheduler()
				srv := a.NewServer()

				errCh := make(chan error, 1)
				go func() {
					a.Logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
				}()

				var serveErr error
				select {
				case <-ctx.Done():
					a.Logger.Info().Msg("Shutdown signal received")
				case serveErr = <-errCh:
					a.Logger.Error().Err(serveErr).Msg("HTTP server failed")
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
				}

				common.PrintShutdownBanner(cmd.OutOrStdout(), a.Logger)
				return serveErr
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "armory %s\n", common.GetFullVersion())
		},
	}
}
