package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"marketapi/internal/reindex"
	"marketapi/internal/storage"
)

func init() {
	reportsCmd := &cobra.Command{Use: "reports", Short: "Archived reindex reports"}

	openArchive := func(ctx context.Context) (storage.Archive, error) {
		cfg, _, err := setup()
		if err != nil {
			return nil, err
		}
		if !cfg.ArchiveEnabled() {
			return nil, fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		return storage.NewMinIO(ctx, cfg.MinIO)
	}

	// list
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(cmd.Context())
			if err != nil {
				return err
			}
			return listReports(cmd.Context(), a, limit, cmd.OutOrStdout())
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reports")
	reportsCmd.AddCommand(listCmd)

	// get
	reportsCmd.AddCommand(&cobra.Command{
		Use:   "get RUN_ID",
		Short: "Print a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.Context(), a, args[0], cmd.OutOrStdout())
		},
	})

	// link
	var expiry time.Duration
	linkCmd := &cobra.Command{
		Use:   "link RUN_ID",
		Short: "Print a presigned download URL for a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.PresignGet(cmd.Context(), reportKey(args[0]), expiry)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	linkCmd.Flags().DurationVarP(&expiry, "expiry", "e", 15*time.Minute, "Link lifetime")
	reportsCmd.AddCommand(linkCmd)

	rootCmd.AddCommand(reportsCmd)
}

// reportKey accepts a run id or a full archive key.
func reportKey(arg string) string {
	if strings.HasPrefix(arg, reindex.ReportPrefix) {
		return arg
	}
	return reindex.ReportKey(arg)
}

func listReports(ctx context.Context, a storage.Archive, limit int, out io.Writer) error {
	objs, err := a.List(ctx, reindex.ReportPrefix, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED")
	for _, o := range objs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func printReport(ctx context.Context, a storage.Archive, arg string, out io.Writer) error {
	rc, _, err := a.Get(ctx, reportKey(arg))
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(out, rc)
	return err
}
