package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bookharvest/internal/config"
	"bookharvest/internal/core/domain/models"
	"bookharvest/internal/core/service"
)

var listAuthor string

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print the stored metadata record for one book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid identifier %q", args[0])
		}

		cfg := config.GetConfig()
		store, err := service.CreateMetadataStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open datamart backend %q: %w", cfg.DatamartBackend, err)
		}
		defer store.Close()

		book, err := store.GetByID(cmd.Context(), bookID)
		if err != nil {
			return err
		}
		printBook(book)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored metadata records by author",
	Long:  `List metadata records whose author matches --author exactly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listAuthor == "" {
			return fmt.Errorf("--author is required")
		}

		cfg := config.GetConfig()
		store, err := service.CreateMetadataStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open datamart backend %q: %w", cfg.DatamartBackend, err)
		}
		defer store.Close()

		books, err := store.QueryByAuthor(cmd.Context(), listAuthor)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Printf("No books found for author %q\n", listAuthor)
			return nil
		}
		for _, book := range books {
			printBook(book)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listAuthor, "author", "", "exact author name to match")
}

func printBook(book *models.Book) {
	fmt.Printf("%d\t%s\t%s\t%s\n", book.BookID, book.Title, book.Author, book.Language)
}
