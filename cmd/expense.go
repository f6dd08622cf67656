package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

var (
	flagExpenseCategory string
	flagExpenseDate     string
	flagExpenseRepeat   int
	flagExpenseLocal    bool
	flagExpenseAmount   float64
	flagExpenseDesc     string
	flagEditCategory    string
	flagExpenseLimit    int
)

var expenseCmd = &cobra.Command{
	Use:     "expense",
	Aliases: []string{"exp"},
	Short:   "Record and manage expenses",
	RunE:    runExpenseList,
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <amount> <description>",
	Short: "Record an expense",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runExpenseAdd,
}

var expenseEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpenseEdit,
}

var expenseRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an expense",
	Args:    cobra.ExactArgs(1),
	RunE:    runExpenseRm,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runExpenseList,
}

func init() {
	expenseAddCmd.Flags().StringVarP(&flagExpenseCategory, "category", "c", string(model.CategoryOther), "Category: "+categoryNames())
	expenseAddCmd.Flags().StringVar(&flagExpenseDate, "date", "", "Date as YYYY-MM-DD (default today)")
	expenseAddCmd.Flags().IntVarP(&flagExpenseRepeat, "repeat", "r", 0, fmt.Sprintf("Also add on the next n days (max %d)", tracker.MaxRepeatDays))
	expenseAddCmd.Flags().BoolVarP(&flagExpenseLocal, "local", "l", false, "Amount is in the destination's currency")

	expenseEditCmd.Flags().Float64Var(&flagExpenseAmount, "amount", 0, "New amount in home currency")
	expenseEditCmd.Flags().StringVar(&flagExpenseDesc, "desc", "", "New description")
	expenseEditCmd.Flags().StringVarP(&flagEditCategory, "category", "c", "", "New category")
	expenseEditCmd.Flags().StringVar(&flagExpenseDate, "date", "", "New date as YYYY-MM-DD")

	expenseListCmd.Flags().IntVarP(&flagExpenseLimit, "limit", "n", 0, "Show at most n expenses")

	expenseCmd.AddCommand(expenseAddCmd, expenseEditCmd, expenseRmCmd, expenseListCmd)
	rootCmd.AddCommand(expenseCmd)
}

func categoryNames() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func parseAmountArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseIDArg(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", s)
	}
	return id, nil
}

func runExpenseAdd(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	amount, err := parseAmountArg(args[0])
	if err != nil {
		return err
	}
	if flagExpenseLocal {
		amount = tracker.ToHome(amount, cfg)
	}
	date := flagExpenseDate
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	}

	added, err := s.tr.AddExpense(cfg.Slug, tracker.ExpenseInput{
		Amount:      amount,
		Description: strings.Join(args[1:], " "),
		Date:        date,
		Category:    flagExpenseCategory,
		RepeatDays:  flagExpenseRepeat,
	})
	if err != nil {
		return err
	}

	first := added[0]
	if len(added) > 1 {
		fmt.Printf("  Added #%d..#%d  %s × %d days  %s (%s)\n",
			first.ID, added[len(added)-1].ID, s.tr.Money(first.Amount), len(added), first.Description, first.Category.Label())
	} else {
		fmt.Printf("  Added #%d  %s  %s (%s)\n", first.ID, s.tr.Money(first.Amount), first.Description, first.Category.Label())
	}

	if sum, err := s.tr.Summary(cfg.Slug); err == nil && sum.Budget > 0 {
		fmt.Printf("  %s spent, %s remaining\n", s.tr.Money(sum.TotalSpent), s.tr.Money(sum.RawRemaining))
	}
	return nil
}

func runExpenseEdit(cmd *cobra.Command, args []string) error {
	id, err := parseIDArg(args[0])
	if err != nil {
		return err
	}
	var patch tracker.ExpensePatch
	if cmd.Flags().Changed("amount") {
		patch.Amount = &flagExpenseAmount
	}
	if cmd.Flags().Changed("desc") {
		patch.Description = &flagExpenseDesc
	}
	if cmd.Flags().Changed("category") {
		patch.Category = &flagEditCategory
	}
	if cmd.Flags().Changed("date") {
		patch.Date = &flagExpenseDate
	}
	if patch == (tracker.ExpensePatch{}) {
		return fmt.Errorf("nothing to change; pass --amount, --desc, --category or --date")
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	slug, err := s.slug()
	if err != nil {
		return noDestinationHint(err)
	}
	e, err := s.tr.EditExpense(slug, id, patch)
	if err != nil {
		return err
	}
	fmt.Printf("  Updated #%d  %s  %s  %s (%s)\n", e.ID, e.Date, s.tr.Money(e.Amount), e.Description, e.Category.Label())
	return nil
}

func runExpenseRm(_ *cobra.Command, args []string) error {
	id, err := parseIDArg(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	slug, err := s.slug()
	if err != nil {
		return noDestinationHint(err)
	}
	if err := s.tr.DeleteExpense(slug, id); err != nil {
		return err
	}
	fmt.Printf("  Deleted #%d\n", id)
	return nil
}

func runExpenseList(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	st, err := s.tr.State(cfg.Slug)
	if err != nil {
		return err
	}
	if len(st.Expenses) == 0 {
		fmt.Println("\n  No expenses recorded yet.")
		return nil
	}

	expenses := newestFirst(st.Expenses)
	if flagExpenseLimit > 0 && len(expenses) > flagExpenseLimit {
		expenses = expenses[:flagExpenseLimit]
	}

	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", e.ID),
			e.Date,
			cli.Truncate(e.Description, 32),
			e.Category.Label(),
			s.tr.Money(e.Amount),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("%s  %d expenses", cfg.Name, len(st.Expenses)),
		Headers: []string{"ID", "Date", "Description", "Category", "Amount"},
		Rows:    rows,
	}))
	return nil
}

// newestFirst orders expenses by date descending, then by id descending.
func newestFirst(in []model.Expense) []model.Expense {
	out := make([]model.Expense, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}
