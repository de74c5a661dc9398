package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/relaychat/internal/app"
	"github.com/vovakirdan/relaychat/internal/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Print the latest messages of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range msgs {
				author := m.Author
				if m.Kind == store.MessageKindSystem {
					author = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.CreatedAt.Local().Format(time.DateTime), author, m.Body)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultHistoryLimit, "number of messages to show")
	return cmd
}
