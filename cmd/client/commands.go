// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/client"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/spf13/cobra"
)

func newSyncCmd(withApp session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued operations against the server now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				res, err := app.TriggerSync(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "synced %d, failed %d, discarded %d, deferred %d\n",
					res.SyncedCount, res.FailedCount, res.DiscardedCount, res.DeferredCount)
				for _, e := range res.Errors {
					fmt.Fprintln(out, "  "+e)
				}
				if !res.Success {
					return fmt.Errorf("sync finished with %d failed operations", res.FailedCount)
				}
				return nil
			})
		},
	}
}

func newStatusCmd(withApp session) *cobra.Command {
	var asJSON, probe bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue, connectivity and cache state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				st := app.Status(ctx, probe)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), st)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "owner\t%s\n", orLocal(st.Owner))
				fmt.Fprintf(w, "version\t%s\n", st.Version)
				fmt.Fprintf(w, "online\t%t\n", st.Online)
				fmt.Fprintf(w, "pending\t%d\n", st.Sync.PendingCount)
				fmt.Fprintf(w, "clients\t%d\n", st.Clients)
				fmt.Fprintf(w, "receipts\t%d\n", st.Receipts)
				fmt.Fprintf(w, "last synced\t%s\n", formatTime(st.LastSyncedAt))
				fmt.Fprintf(w, "stale\t%t\n", st.Stale)
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&probe, "probe", true, "ping the server instead of trusting the last probe")
	return cmd
}

func newRepairCmd(withApp session) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Drop orphaned placeholder records and check cache consistency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				return writeJSON(cmd.OutOrStdout(), app.Repair(ctx))
			})
		},
	}
}

func newLimitsCmd(withApp session) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show rate limit state for every operation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *client.App) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "OPERATION\tALLOWED\tREMAINING\tRETRY AFTER")
				for _, l := range app.Limits() {
					fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", l.Operation, l.Allowed, l.Remaining, l.RetryAfter)
				}
				return w.Flush()
			})
		},
	}
}

func newClientCmd(withApp session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}

	var c models.Client
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				id, err := app.Records().CreateClient(ctx, app.OwnerID(), c)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	clientFlags(add, &c.Name, &c.Email, &c.Phone, &c.Address)
	_ = add.MarkFlagRequired("name")

	var name, email, phone, address string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ClientPatch
			set := func(flag string, v *string) *string {
				if cmd.Flags().Changed(flag) {
					return v
				}
				return nil
			}
			patch.Name = set("name", &name)
			patch.Email = set("email", &email)
			patch.Phone = set("phone", &phone)
			patch.Address = set("address", &address)
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}
			id, err := models.ParseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				updated, err := app.Records().UpdateClient(ctx, app.OwnerID(), id, patch)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), updated)
				return err
			})
		},
	}
	clientFlags(update, &name, &email, &phone, &address)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client; its receipts are kept without a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				return app.Records().DeleteClient(ctx, app.OwnerID(), id)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				return writeJSON(cmd.OutOrStdout(), app.Records().ListClients(ctx))
			})
		},
	}

	cmd.AddCommand(add, update, del, list)
	return cmd
}

func clientFlags(cmd *cobra.Command, name, email, phone, address *string) {
	cmd.Flags().StringVar(name, "name", "", "client name")
	cmd.Flags().StringVar(email, "email", "", "client email")
	cmd.Flags().StringVar(phone, "phone", "", "client phone")
	cmd.Flags().StringVar(address, "address", "", "client address")
}

func newReceiptCmd(withApp session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Manage receipts",
	}

	var (
		clientID string
		item     models.ReceiptItem
		number   string
		notes    string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Issue a receipt with one line to a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := models.ParseID(clientID)
			if err != nil {
				return err
			}
			r := models.Receipt{
				ClientID: target,
				Number:   number,
				Date:     time.Now(),
				Items:    []models.ReceiptItem{item},
				Notes:    notes,
			}
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				id, err := app.Records().CreateReceipt(ctx, app.OwnerID(), r)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	add.Flags().StringVar(&clientID, "client", "", "client id, placeholder or server issued")
	add.Flags().StringVar(&item.Description, "description", "", "line description")
	add.Flags().Float64Var(&item.Quantity, "qty", 1, "line quantity")
	add.Flags().Float64Var(&item.UnitPrice, "price", 0, "line unit price")
	add.Flags().StringVar(&number, "number", "", "receipt number")
	add.Flags().StringVar(&notes, "notes", "", "free text notes")
	_ = add.MarkFlagRequired("client")
	_ = add.MarkFlagRequired("description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached receipts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				return writeJSON(cmd.OutOrStdout(), app.Records().ListReceipts(ctx))
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// catalogFile is the layout accepted by "catalog import".
type catalogFile struct {
	Products   []models.Product  `json:"products"`
	Categories []models.Category `json:"categories"`
}

func newCatalogCmd(withApp session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the cached product catalog",
	}

	imp := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace cached products and categories with the file contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := readCatalog(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *client.App) error {
				if err := app.Records().ImportCatalog(ctx, catalog.Products, catalog.Categories); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d products, %d categories\n",
					len(catalog.Products), len(catalog.Categories))
				return err
			})
		},
	}

	cmd.AddCommand(imp)
	return cmd
}

func readCatalog(path string) (catalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalogFile{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var catalog catalogFile
	if err := json.NewDecoder(f).Decode(&catalog); err != nil {
		return catalogFile{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return catalog, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orLocal(owner string) string {
	if owner == "" {
		return "local only"
	}
	return owner
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
