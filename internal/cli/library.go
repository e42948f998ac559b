package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/pkg/jsonutil"
	"github.com/Mr-Dark-debug/jsonview/pkg/timeutil"
)

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <ref>",
		Short: "Add a document to the library",
		Long: `Add a document to the library.

ref is a file, an http(s) URL or "-" for stdin. The document is stored under
--name, or the base name of ref. Importing an existing name replaces it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if name == "" {
				name = source.Name(ref)
			}
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := source.Load(cmd.Context(), ref, c.sourceOptions(cmd, store))
			if err != nil {
				return err
			}
			stored, err := database.NewDocument(name, ref, doc.Tree)
			if err != nil {
				return err
			}
			if err := store.SaveDocument(stored); err != nil {
				return err
			}
			prog.done("Imported " + name)

			out := cmd.OutOrStdout()
			printSuccess(out, "Imported %s", name)
			printDetail(out, "%s · %d records · %d groups · depth %d",
				stored.Title, stored.Records, stored.Groups, stored.Depth)
			for _, w := range doc.Warnings {
				printWarning(out, "%s", w)
			}
			if len(doc.Ignored) > 0 {
				printWarning(out, "ignored extra titles: %s", strings.Join(doc.Ignored, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "library name (default: base name of ref)")
	cmd.Flags().String("title", "", "title for documents that are a bare array")

	return cmd
}

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var (
		prefix string
		title  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List library documents, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := store.ListDocuments(database.DocumentFilter{
				NamePrefix: prefix,
				Title:      title,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if docs == nil {
					docs = []*database.Document{}
				}
				s, err := jsonutil.PrettyValue(docs)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			if len(docs) == 0 {
				printInfo(out, "No documents")
				return nil
			}

			rows := make([][]string, 0, len(docs))
			for _, d := range docs {
				rows = append(rows, []string{
					d.Name,
					d.Title,
					strconv.Itoa(d.Records),
					strconv.Itoa(d.Groups),
					strconv.Itoa(d.Depth),
					timeutil.FormatBytes(int64(len(d.Body))),
					timeutil.RelativeTime(d.ImportedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Title", "Records", "Groups", "Depth", "Size", "Imported"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "only names starting with prefix")
	cmd.Flags().StringVar(&title, "title", "", "only documents with this root title")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a library document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.GetDocument(args[0])
			if err != nil {
				return fmt.Errorf("export %s: %w", args[0], err)
			}

			if output == "" || output == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(doc.Body))
				return err
			}
			if err := os.WriteFile(output, append(doc.Body, '\n'), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			printSuccess(cmd.ErrOrStderr(), "Exported %s", doc.Name)
			printFile(cmd.ErrOrStderr(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

// rmCommand creates the rm command.
func (c *CLI) rmCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Remove a document from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.GetDocument(args[0])
			if err != nil {
				return fmt.Errorf("rm %s: %w", args[0], err)
			}

			if !yes && !confirmDelete(cmd.InOrStdin(), cmd.ErrOrStderr(), doc) {
				printInfo(cmd.ErrOrStderr(), "Cancelled")
				return nil
			}
			if err := store.DeleteDocument(doc.ID); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("rm %s: %w", args[0], err)
				}
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Removed %s", doc.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")

	return cmd
}

// confirmDelete asks for a typed "yes" before a document is removed.
func confirmDelete(in io.Reader, out io.Writer, doc *database.Document) bool {
	fmt.Fprintln(out, "WARNING: This operation will DELETE a document:")
	fmt.Fprintf(out, "- %s (%s, %d records)\n", doc.Name, doc.Title, doc.Records)
	fmt.Fprint(out, "\nDo you want to continue? Type 'yes' to confirm: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "yes"
}
