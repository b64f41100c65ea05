package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/polodb"
)

func newDumpCommand(a *app) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every document of a database",
		Long: `Print every document of a database as canonical Extended JSON, one
line per document. Each line holds the collection name and the document.

Opening a database compacts its journal.`,
		Example: `  # Dump every collection
  polodb dump books.db

  # Dump a single collection
  polodb dump books.db --collection books`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return err
			}

			db, err := polodb.OpenContext(cmd.Context(), path, polodb.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer db.Close()

			names, err := db.Collections()
			if err != nil {
				return err
			}
			if collection != "" {
				names = []string{collection}
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				docs, err := db.Collection(name).FindOrdered(nil)
				if err != nil {
					return err
				}
				a.log.Debug("dumping collection", zap.String("collection", name), zap.Int("documents", len(docs)))
				for _, doc := range docs {
					line, err := bson.MarshalExtJSON(bson.D{
						{Key: "collection", Value: name},
						{Key: "document", Value: doc},
					}, true, false)
					if err != nil {
						return err
					}
					if _, err := fmt.Fprintln(out, string(line)); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "only dump this collection")

	return cmd
}
