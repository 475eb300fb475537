package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/company"
	"github.com/yurifrl/reembolso/pkg/csv"
	"github.com/yurifrl/reembolso/pkg/executors"
	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/plan"
	"github.com/yurifrl/reembolso/pkg/receipt"
	"github.com/yurifrl/reembolso/pkg/reconcile"
	"github.com/yurifrl/reembolso/pkg/report"
	"github.com/yurifrl/reembolso/pkg/store"
	"github.com/yurifrl/reembolso/pkg/ynab"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	creditStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// ---------------- import ----------------

var importCmd = &cobra.Command{
	Use:   "import [flags] <path>...",
	Short: "Import statement files or directories (OFX, CSV, TXT, XLS, XLSX)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, err := current.processor(current.cfg.CSV.Profile)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var total importer.Result
		for _, pattern := range args {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no files found matching pattern %s", pattern)
			}

			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					current.logger.Warn("failed to stat file", "error", err, "file", match)
					continue
				}

				switch {
				case dryRun && !info.IsDir():
					txs, err := proc.ParseFile(match, "")
					if err != nil {
						return err
					}
					rep, err := current.importer().Plan(ctx, txs)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, headerStyle.Render(match))
					executors.PrintReport(out, rep)
				case dryRun:
					current.logger.Warn("dry-run skips directories", "dir", match)
				case info.IsDir():
					res, err := proc.ProcessDirectory(ctx, match)
					if err != nil {
						return err
					}
					total = addResult(total, res)
				default:
					res, err := proc.ProcessFile(ctx, match)
					if err != nil {
						return err
					}
					total = addResult(total, res)
				}
			}
		}

		if !dryRun {
			fmt.Fprintf(out, "Imported %d new transaction(s), %d already present\n", total.Inserted, total.Skipped)
		}
		return nil
	},
}

func addResult(a, b importer.Result) importer.Result {
	return importer.Result{Parsed: a.Parsed + b.Parsed, Inserted: a.Inserted + b.Inserted, Skipped: a.Skipped + b.Skipped}
}

// ---------------- plan ----------------

var planCmd = &cobra.Command{
	Use:   "plan <plan_file>",
	Short: "Preview a YAML plan of statements (dry-run), or apply it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		if p.YNAB.BudgetID == "" {
			p.YNAB.BudgetID = current.cfg.YNAB.BudgetID
		}

		var source executors.Source
		if hasYNAB(p) {
			tokenCfg := *current.cfg
			if p.YNAB.TokenEnv != "" {
				tokenCfg.YNAB.TokenEnv = p.YNAB.TokenEnv
			}
			token, err := tokenCfg.YNABToken()
			if err != nil {
				return err
			}
			source = ynab.New(token)
		}

		proc, err := current.processor(current.cfg.CSV.Profile)
		if err != nil {
			return err
		}
		exec := executors.New(current.logger, proc, current.importer(), source)
		out := cmd.OutOrStdout()

		if apply, _ := cmd.Flags().GetBool("apply"); apply {
			changes, err := exec.Apply(cmd.Context(), p)
			for _, c := range changes {
				fmt.Fprintf(out, "  - %s : created %d, already present %d\n", c.Statement, c.ToAdd, c.InSync)
			}
			return err
		}

		fmt.Fprintf(out, "Plan preview for %s\n", args[0])
		p.Print(out)
		changes, err := exec.Plan(cmd.Context(), out, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Summary of changes:")
		for _, c := range changes {
			fmt.Fprintf(out, "  - %s : create %d transactions\n", c.Statement, c.ToAdd)
		}
		return nil
	},
}

func hasYNAB(p *plan.Plan) bool {
	for _, st := range p.Statements {
		if st.Type == plan.TypeYNAB {
			return true
		}
	}
	return false
}

// ---------------- receipt ----------------

var receiptCmd = &cobra.Command{
	Use:         "receipt [flags] <file.pdf>",
	Short:       "Extract fiscal document fields from a receipt PDF",
	Args:        cobra.ExactArgs(1),
	Annotations: noStore,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		rec, err := receipt.New(current.logger).Parse(cmd.Context(), data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rec == nil {
			fmt.Fprintln(out, "no receipt data found")
			return nil
		}

		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			pp.Fprintln(out, rec)
		} else {
			printReceipt(cmd, rec)
		}

		expenseID, _ := cmd.Flags().GetString("expense")
		if expenseID == "" {
			return nil
		}
		st, err := store.Open(cmd.Context(), current.cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		exp, err := st.GetExpense(cmd.Context(), expenseID)
		if err != nil {
			return err
		}
		rec.ApplyTo(exp)
		if err := st.UpsertExpense(cmd.Context(), exp); err != nil {
			return err
		}
		fmt.Fprintf(out, "expense %s updated\n", exp.ID)
		return nil
	},
}

func printReceipt(cmd *cobra.Command, r *models.Receipt) {
	out := cmd.OutOrStdout()
	row := func(label, value string, ok bool) {
		if !ok {
			value = mutedStyle.Render("-")
		}
		fmt.Fprintf(out, "%-12s %s\n", label, value)
	}
	fmt.Fprintln(out, headerStyle.Render(string(r.Kind)))
	v, ok := r.IssueDate.Get()
	row("Data", v, ok)
	cents, ok := r.TotalCents.Get()
	row("Total", brl.FormatCents(cents), ok)
	v, ok = r.SupplierName.Get()
	row("Emitente", v, ok)
	v, ok = r.SupplierDocument.Get()
	row("CNPJ/CPF", report.FormatDocument(v), ok)
	v, ok = r.ReceiptNumber.Get()
	row("Número", v, ok)
	v, ok = r.Description.Get()
	row("Descrição", v, ok)
}

// ---------------- list / candidates ----------------

var listCmd = &cobra.Command{
	Use:   "list [flags]",
	Short: "List imported transactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := cliFilters.toFilter()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		txs, err := current.store.ListTransactions(ctx)
		if err != nil {
			return err
		}
		companies, err := current.store.ListCompanies(ctx)
		if err != nil {
			return err
		}
		expenses, err := current.store.ListExpenses(ctx, "")
		if err != nil {
			return err
		}
		byID := make(map[string]*models.Expense, len(expenses))
		for _, e := range expenses {
			byID[e.ID] = e
		}
		dir := company.NewDirectory(companies)

		out := cmd.OutOrStdout()
		visible := filter.Apply(txs)
		for _, tx := range visible {
			amount := brl.Format(tx.Amount)
			if tx.IsCredit() {
				amount = creditStyle.Render(amount)
			}
			desc := tx.DisplayDescription()
			if tx.ManualDescription != "" {
				desc = tx.ManualDescription
			}
			badge := ""
			if b, ok := dir.Badge(tx, byID[tx.LinkedExpenseID], current.cfg.CompanyID); ok {
				badge = badgeStyle.Render("[" + b.Label + "]")
				if b.Locked {
					badge = lockedStyle.Render("[" + b.Label + " locked]")
				}
			}
			fmt.Fprintf(out, "%s | %s | %-4s | %-40.40s | %14s %s\n",
				tx.ID, tx.Date.Format("2006-01-02"), tx.Source(), desc, amount, badge)
		}
		fmt.Fprintf(out, "\n%d transaction(s), %d selectable, total %s\n",
			len(visible), len(reconcile.Selectable(visible)), brl.Format(reconcile.SelectionSum(visible, ids(visible))))
		return nil
	},
}

func ids(txs []*models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates [flags] <transaction_id>",
	Short: "Rank the active company's expenses by closeness to a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tx, err := current.store.GetTransaction(ctx, args[0])
		if err != nil {
			return err
		}
		active := current.cfg.CompanyID
		expenses, err := current.store.ListExpenses(ctx, active)
		if err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s %s\n", tx.Date.Format("2006-01-02"), tx.DisplayDescription(), brl.Format(tx.Amount))
		for _, c := range reconcile.RankCandidates(tx, expenses, active, search) {
			mark := " "
			if c.Exact {
				mark = creditStyle.Render("=")
			}
			fmt.Fprintf(out, "%s %s | %s | %-8s | %-30.30s | %s (Δ %s)\n",
				mark, c.Expense.ID, c.Expense.Date.Format("2006-01-02"), c.Expense.ReportID,
				c.Expense.Description, brl.Format(c.Expense.Value), c.Distance.StringFixed(2))
		}
		return nil
	},
}

// ---------------- link / unlink / edit / delete / sum ----------------

var linkCmd = &cobra.Command{
	Use:   "link <transaction_id> <expense_id>",
	Short: "Link a transaction to an expense",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := current.matcher().Link(cmd.Context(), args[0], args[1], current.cfg.CompanyID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "linked %s to %s (report %s)\n", tx.ID, tx.LinkedExpenseID, tx.ManualReportID)
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <transaction_id>",
	Short: "Remove a transaction's link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := current.matcher().Unlink(cmd.Context(), args[0], current.cfg.CompanyID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s\n", tx.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <transaction_id> <description|report|note> <value>",
	Short: "Set a manual field of a transaction",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.matcher().EditManualField(cmd.Context(), args[0], reconcile.ManualField(args[1]), args[2], current.cfg.CompanyID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s of %s\n", args[1], args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <transaction_id>...",
	Short: "Delete transactions; refused when any of them is linked",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := current.importer().DeleteBatch(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d transaction(s)\n", n)
		return nil
	},
}

var sumCmd = &cobra.Command{
	Use:   "sum [flags] [transaction_id...]",
	Short: "Sum the selected transactions, or every unlinked one matching the filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, err := current.store.ListTransactions(cmd.Context())
		if err != nil {
			return err
		}
		selected := args
		if len(selected) == 0 {
			filter, err := cliFilters.toFilter()
			if err != nil {
				return err
			}
			selected = ids(reconcile.Selectable(filter.Apply(txs)))
		}
		sum := reconcile.SelectionSum(reconcile.Selectable(txs), selected)
		fmt.Fprintf(cmd.OutOrStdout(), "%d selected, total %s\n", len(selected), brl.Format(sum))
		return nil
	},
}

// ---------------- reports / export ----------------

var reportsCmd = &cobra.Command{
	Use:   "reports [flags]",
	Short: "List closed expense reports with approved totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		expenses, err := current.store.ListExpenses(cmd.Context(), current.cfg.CompanyID)
		if err != nil {
			return err
		}
		sel := report.Selector{}
		sel.Month, _ = cmd.Flags().GetInt("month")
		sel.Year, _ = cmd.Flags().GetInt("year")
		sel.Search, _ = cmd.Flags().GetString("search")
		sel.UserID, _ = cmd.Flags().GetString("user")

		out := cmd.OutOrStdout()
		groups := report.GroupByReport(expenses, sel)
		for _, g := range groups {
			status := mutedStyle.Render("pendente")
			if g.Audited {
				status = creditStyle.Render("auditado")
			}
			fmt.Fprintf(out, "%s %s | %s | %s | aprovado %s", headerStyle.Render(g.ReportID), g.Date.Format("2006-01-02"), g.CostCenter, status, brl.Format(g.TotalApproved))
			if g.HasGlosas {
				fmt.Fprint(out, lockedStyle.Render(fmt.Sprintf(" | %d glosa(s)", g.RejectedCount)))
			}
			fmt.Fprintln(out)
			var cats []string
			for _, c := range g.Categories() {
				cats = append(cats, c.Name+" "+brl.Format(c.Value))
			}
			fmt.Fprintln(out, mutedStyle.Render("  "+strings.Join(cats, " · ")))
		}
		fmt.Fprintf(out, "\n%d report(s), approved %s\n", len(groups), brl.Format(report.ApprovedSum(groups)))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [flags]",
	Short: "Export transactions as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := cliFilters.toFilter()
		if err != nil {
			return err
		}
		txs, err := current.store.ListTransactions(cmd.Context())
		if err != nil {
			return err
		}
		data, err := csv.Create(txs, filter.Match)
		if err != nil {
			return err
		}
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			return os.WriteFile(path, data, 0644)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// ---------------- ynab ----------------

var ynabImportCmd = &cobra.Command{
	Use:   "ynab-import [flags]",
	Short: "Import a YNAB account as a bank source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, _ := cmd.Flags().GetString("account")
		if account == "" {
			return fmt.Errorf("--account is required")
		}
		if current.cfg.YNAB.BudgetID == "" {
			return fmt.Errorf("ynab budget id is required (--budget or ynab.budget_id)")
		}
		token, err := current.cfg.YNABToken()
		if err != nil {
			return err
		}
		txs, err := ynab.New(token).Transactions(current.cfg.YNAB.BudgetID, account)
		if err != nil {
			return err
		}
		res, err := current.importer().Import(cmd.Context(), txs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new transaction(s), %d already present\n", res.Inserted, res.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().String("profile", "", "CSV profile (auto, header, card, itau)")
	importCmd.Flags().Int("concurrency", 0, "Concurrent inserts")
	importCmd.Flags().Bool("dry-run", false, "Show what would be imported without writing")

	planCmd.Flags().Bool("apply", false, "Import the plan instead of previewing it")
	planCmd.Flags().String("profile", "", "Default CSV profile for statements without one")

	receiptCmd.Flags().Bool("dump", false, "Dump the parsed receipt structure")
	receiptCmd.Flags().String("expense", "", "Merge the receipt into this expense")

	cliFilters.register(listCmd)
	cliFilters.register(sumCmd)
	cliFilters.register(exportCmd)

	candidatesCmd.Flags().String("search", "", "Keep expenses whose description or value contains this")

	reportsCmd.Flags().Int("month", 0, "Closing month (1-12)")
	reportsCmd.Flags().Int("year", 0, "Closing year")
	reportsCmd.Flags().String("search", "", "Report id or cost center contains")
	reportsCmd.Flags().String("user", "", "Only reports of this user")

	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	ynabImportCmd.Flags().String("account", "", "YNAB account id")
	ynabImportCmd.Flags().String("budget", "", "YNAB budget id")
}
