package books

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stefabooks/cmd/client/cmd/cmdutil"
	"stefabooks/internal/domain/book"
)

var BooksCmd = &cobra.Command{
	Use:   "books",
	Short: "Поиск по локальному каталогу",
	Long: `Чтение книг из локального кеша. Сервер не запрашивается;
для обновления кеша используйте stefabooks cache sync.`,
}

var (
	category      string
	ageCategory   string
	search        string
	availableOnly bool
	limit         int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список книг",
	Long: `Список книг из кеша с фильтрами по категории, возрастной группе,
тексту (название, автор, описание) и наличию. Фильтры объединяются через И.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}

		books := app.Store().GetFilteredBooks(book.Filter{
			CategoryID:    category,
			AgeCategoryID: ageCategory,
			Search:        search,
			AvailableOnly: availableOnly,
			Limit:         limit,
		})

		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(cmd.OutOrStdout(), books)
		}
		return printBooksTable(cmd.OutOrStdout(), books)
	},
}

var GetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать книгу",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.AppFrom(cmd)
		if err != nil {
			return err
		}

		b, ok := app.Store().GetBookByID(args[0])
		if !ok {
			return fmt.Errorf("книга %s не найдена в кеше", args[0])
		}

		if cmdutil.WantJSON(cmd) {
			return cmdutil.PrintJSON(cmd.OutOrStdout(), b)
		}
		printBook(cmd.OutOrStdout(), b)
		return nil
	},
}

func printBooksTable(out io.Writer, books []book.Book) error {
	if len(books) == 0 {
		cmdutil.Warning.Fprintln(out, "Книги не найдены")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tАВТОР\tКАТЕГОРИЯ\tВОЗРАСТ\tВ НАЛИЧИИ")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, truncate(b.Title, 40), truncate(b.Author, 30), b.Category, b.AgeRange, yesNo(b.Available))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nВсего: %d\n", len(books))
	return nil
}

func printBook(w io.Writer, b book.Book) {
	fmt.Fprintf(w, "ID: %s\n", b.ID)
	fmt.Fprintf(w, "Название: %s\n", b.Title)
	fmt.Fprintf(w, "Автор: %s\n", b.Author)
	if b.Category != "" {
		fmt.Fprintf(w, "Категория: %s\n", b.Category)
	}
	if b.AgeRange != "" {
		fmt.Fprintf(w, "Возраст: %s\n", b.AgeRange)
	}
	fmt.Fprintf(w, "В наличии: %s\n", yesNo(b.Available))
	if b.Description != "" {
		fmt.Fprintf(w, "\n%s\n", b.Description)
	}
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	ListCmd.Flags().StringVar(&category, "category", "", "id категории")
	ListCmd.Flags().StringVar(&ageCategory, "age", "", "id возрастной группы")
	ListCmd.Flags().StringVarP(&search, "search", "s", "", "поиск по названию, автору и описанию")
	ListCmd.Flags().BoolVar(&availableOnly, "available", false, "только книги в наличии")
	ListCmd.Flags().IntVar(&limit, "limit", 0, "максимум книг в выводе (0 - без ограничения)")
}
