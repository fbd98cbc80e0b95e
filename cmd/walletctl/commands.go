package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/report"
	"gitlab.com/yelinaung/wallet/internal/support"
	"gitlab.com/yelinaung/wallet/internal/validation"
	"gitlab.com/yelinaung/wallet/internal/wallet"
)

var errUsage = errors.New("usage error")

type command struct {
	name       string
	args       string
	summary    string
	needsLogin bool
	run        func(ctx context.Context, a *app, args []string, out io.Writer) error
}

func commands() []command {
	return []command{
		{name: "login", summary: "sign in and show the profile", needsLogin: true, run: runLogin},
		{name: "balance", summary: "show balances", needsLogin: true, run: runBalance},
		{name: "history", args: "[-n N]", summary: "list recent transactions", needsLogin: true, run: runHistory},
		{name: "recharge", args: "-amount A -rib RIB", summary: "credit dinars from a bank account", needsLogin: true, run: runRecharge},
		{name: "withdraw", args: "-amount A [-currency C]", summary: "withdraw funds", needsLogin: true, run: runWithdraw},
		{name: "convert", args: "-from C -to C -amount A", summary: "convert between currencies", needsLogin: true, run: runConvert},
		{name: "transfer", args: "-to ACC -amount A [-currency C] [-note N]", summary: "send money instantly", needsLogin: true, run: runTransfer},
		{name: "invest", args: "-amount A -type T -rate R | -return -amount A", summary: "open or return an investment", needsLogin: true, run: runInvest},
		{name: "savings", args: "-goal ID -amount A", summary: "deposit into a savings goal", needsLogin: true, run: runSavings},
		{name: "card", args: "-id ID -amount A [-currency C]", summary: "top up a card", needsLogin: true, run: runCard},
		{name: "notifications", args: "[-read ID]", summary: "list or mark notifications", needsLogin: true, run: runNotifications},
		{name: "support", args: "-subject S -message M [-category C] [-priority P] | -list", summary: "open or list support tickets", needsLogin: true, run: runSupport},
		{name: "export", args: "csv|xlsx [-o FILE]", summary: "export transactions", needsLogin: true, run: runExport},
		{name: "chart", args: "balance|activity [-currency C] [-o FILE]", summary: "render a PNG chart", needsLogin: true, run: runChart},
		{name: "migrate", summary: "create the tables in DATABASE_URL", run: runMigrate},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: walletctl <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  version\t\tprint the build version\n")
	for _, c := range commands() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.name, c.args, c.summary)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Credentials are read from WALLET_EMAIL and WALLET_PASSWORD.")
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, fs.Name(), err)
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	r := validation.ParseAmount(raw)
	return r.Value, r.Err()
}

func parseCurrency(raw string) (models.Currency, error) {
	r := validation.ValidateCurrency(raw)
	return r.Value, r.Err()
}

func printReceipt(out io.Writer, title string, r *wallet.Receipt) {
	fmt.Fprintln(out, title)
	if r.Reference != "" {
		fmt.Fprintf(out, "  reference: %s\n", r.Reference)
	}
	if r.Transaction == nil {
		fmt.Fprintln(out, "  (history entry could not be recorded)")
	}
	printBalance(out, r.Balance)
}

func printBalance(out io.Writer, b models.Balance) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, c := range models.Currencies {
		fmt.Fprintf(tw, "  %s\t%s\t\n", strings.ToUpper(string(c)), models.FormatAmount(b.Amount(c), c))
	}
	fmt.Fprintf(tw, "  Invested\t%s\t\n", models.FormatAmount(b.InvestmentBalance, models.CurrencyDZD))
	_ = tw.Flush()
}

func runLogin(_ context.Context, a *app, _ []string, out io.Writer) error {
	p := a.session.Profile
	fmt.Fprintf(out, "Signed in as %s\n", p.Email)
	if a.session.Degraded {
		fmt.Fprintln(out, "Profile details are unavailable right now.")
		return nil
	}
	if p.FullName != "" {
		fmt.Fprintf(out, "  name:     %s\n", p.FullName)
	}
	if p.AccountNumber != "" {
		fmt.Fprintf(out, "  account:  %s\n", p.AccountNumber)
	}
	status := string(p.VerificationStatus)
	if status == "" {
		status = "not submitted"
	}
	fmt.Fprintf(out, "  verified: %s\n", status)
	return nil
}

func runBalance(_ context.Context, a *app, _ []string, out io.Writer) error {
	b, ok := a.wallet.Balance()
	if !ok {
		return wallet.ErrBalanceNotLoaded
	}
	printBalance(out, b)
	if n := a.wallet.UnreadCount(); n > 0 {
		fmt.Fprintf(out, "%d unread notification(s)\n", n)
	}
	return nil
}

func runHistory(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("history")
	limit := fs.Int("n", a.cfg.RecentTransactionsLimit, "number of transactions")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	txs, err := a.wallet.RefreshTransactions(ctx, *limit)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(out, "No transactions yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tSTATUS\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.CreatedAt.Local().Format("2006-01-02 15:04"),
			tx.Type,
			models.FormatAmount(tx.Amount, tx.Currency),
			tx.Status,
			tx.Description,
		)
	}
	return tw.Flush()
}

func runRecharge(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("recharge")
	amount := fs.String("amount", "", "amount in DZD")
	rib := fs.String("rib", "", "bank RIB")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	r, err := a.wallet.Recharge(ctx, wallet.RechargeRequest{Amount: amt, RIB: *rib})
	if err != nil {
		return err
	}
	printReceipt(out, "Recharge completed.", r)
	return nil
}

func runWithdraw(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("withdraw")
	amount := fs.String("amount", "", "amount")
	currency := fs.String("currency", string(models.CurrencyDZD), "currency")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	cur, err := parseCurrency(*currency)
	if err != nil {
		return err
	}

	r, err := a.wallet.Withdraw(ctx, cur, amt)
	if err != nil {
		return err
	}
	printReceipt(out, "Withdrawal completed.", r)
	return nil
}

func runConvert(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("convert")
	from := fs.String("from", "", "source currency")
	to := fs.String("to", "", "target currency")
	amount := fs.String("amount", "", "amount in the source currency")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	src, err := parseCurrency(*from)
	if err != nil {
		return err
	}
	dst, err := parseCurrency(*to)
	if err != nil {
		return err
	}

	r, err := a.wallet.Convert(ctx, src, dst, amt)
	if err != nil {
		return err
	}
	printReceipt(out, fmt.Sprintf("Converted %s to %s (rate %s).",
		models.FormatAmount(amt, src), models.FormatAmount(r.Amount, dst), r.Rate.String()), r)
	return nil
}

func runTransfer(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("transfer")
	to := fs.String("to", "", "recipient account number")
	amount := fs.String("amount", "", "amount")
	currency := fs.String("currency", string(models.CurrencyDZD), "currency")
	note := fs.String("note", "", "description")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	cur, err := parseCurrency(*currency)
	if err != nil {
		return err
	}

	r, err := a.wallet.InstantTransfer(ctx, wallet.TransferInput{
		Recipient:   *to,
		Amount:      amt,
		Currency:    cur,
		Description: *note,
	})
	if err != nil {
		return err
	}
	printReceipt(out, "Transfer sent.", r)
	return nil
}

func runInvest(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("invest")
	amount := fs.String("amount", "", "amount in DZD")
	kind := fs.String("type", string(models.InvestmentMonthly), "weekly, monthly, quarterly or yearly")
	rate := fs.String("rate", "", "profit rate in percent")
	ret := fs.Bool("return", false, "return funds from investments to the dinar balance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	if *ret {
		r, err := a.wallet.ReturnInvestment(ctx, amt)
		if err != nil {
			return err
		}
		printReceipt(out, "Investment returned.", r)
		return nil
	}

	t := validation.ValidateInvestmentType(*kind)
	if err := t.Err(); err != nil {
		return err
	}
	profit := validation.ParseProfitRate(*rate)
	if err := profit.Err(); err != nil {
		return err
	}

	r, err := a.wallet.Invest(ctx, wallet.InvestRequest{Amount: amt, Type: t.Value, ProfitRate: profit.Value})
	if err != nil {
		return err
	}
	matures := wallet.TermEnd(time.Now(), t.Value)
	if r.Investment != nil {
		matures = r.Investment.EndDate
	}
	printReceipt(out, fmt.Sprintf("Investment opened, matures %s.", matures.Format("2006-01-02")), r)
	if r.Investment == nil {
		fmt.Fprintln(out, "  (investment could not be recorded, contact support)")
	}
	return nil
}

func runSavings(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("savings")
	goal := fs.String("goal", "", "savings goal id")
	amount := fs.String("amount", "", "amount in DZD")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	r, err := a.wallet.DepositToSavings(ctx, *goal, amt)
	if err != nil {
		return err
	}
	printReceipt(out, fmt.Sprintf("Deposited %s.", models.FormatAmount(r.Amount, models.CurrencyDZD)), r)
	return nil
}

func runCard(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("card")
	id := fs.String("id", "", "card id")
	amount := fs.String("amount", "", "amount")
	currency := fs.String("currency", string(models.CurrencyDZD), "currency")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	cur, err := parseCurrency(*currency)
	if err != nil {
		return err
	}

	r, err := a.wallet.ChargeCard(ctx, *id, cur, amt)
	if err != nil {
		return err
	}
	printReceipt(out, "Card topped up.", r)
	return nil
}

func runNotifications(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("notifications")
	read := fs.String("read", "", "mark the notification with this id as read")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *read != "" {
		if err := a.wallet.MarkNotificationRead(ctx, *read); err != nil {
			return err
		}
		fmt.Fprintln(out, "Marked as read.")
		return nil
	}

	list := a.wallet.Notifications()
	if len(list) == 0 {
		fmt.Fprintln(out, "No notifications.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, n := range list {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title, n.Message)
	}
	return tw.Flush()
}

func runSupport(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlags("support")
	subject := fs.String("subject", "", "ticket subject")
	message := fs.String("message", "", "ticket message")
	category := fs.String("category", "", "general, account, payment, card or technical")
	priority := fs.String("priority", "", "low, normal, high or urgent")
	list := fs.Bool("list", false, "list your tickets")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	userID := a.wallet.UserID()
	if *list {
		tickets, err := a.support.List(ctx, userID, 0)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tSTATUS\tCATEGORY\tPRIORITY\tSUBJECT")
		for _, t := range tickets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.CreatedAt.Local().Format("2006-01-02"), t.Status, t.Category, t.Priority, t.Subject)
		}
		return tw.Flush()
	}

	t, err := a.support.Create(ctx, userID, support.Ticket{
		Subject:  *subject,
		Message:  *message,
		Category: *category,
		Priority: *priority,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Ticket %s opened (%s, %s priority).\n", t.ID, t.Category, t.Priority)
	return nil
}

func runExport(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: export needs a format (csv or xlsx)", errUsage)
	}
	format := args[0]
	fs := newFlags("export")
	file := fs.String("o", "", "output file")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	txs, err := a.wallet.RefreshTransactions(ctx, 0)
	if err != nil {
		return err
	}

	name := *file
	if name == "" {
		name = report.Filename("transactions", format, time.Now())
	}

	switch format {
	case "csv":
		data, err := report.TransactionsCSV(txs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(name, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	case "xlsx":
		b, _ := a.wallet.Balance()
		if err := writeFile(name, func(w io.Writer) error {
			return report.ExportXLSX(w, report.Statement{
				Owner:        a.session.Profile.Email,
				Balance:      b,
				Transactions: txs,
				GeneratedAt:  time.Now(),
			})
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown export format %q", errUsage, format)
	}

	fmt.Fprintf(out, "Wrote %d transaction(s) to %s\n", len(txs), name)
	return nil
}

func runChart(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: chart needs a kind (balance or activity)", errUsage)
	}
	kind := args[0]
	fs := newFlags("chart")
	file := fs.String("o", "", "output file")
	currency := fs.String("currency", string(models.CurrencyDZD), "currency for the activity chart")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	var png []byte
	var err error
	switch kind {
	case "balance":
		b, ok := a.wallet.Balance()
		if !ok {
			return wallet.ErrBalanceNotLoaded
		}
		png, err = report.BalanceChart(ctx, b, a.converter)
	case "activity":
		cur, cerr := parseCurrency(*currency)
		if cerr != nil {
			return cerr
		}
		png, err = report.ActivityChart(a.wallet.Transactions(), cur, "recent")
	default:
		return fmt.Errorf("%w: unknown chart %q", errUsage, kind)
	}
	if err != nil {
		return err
	}

	name := *file
	if name == "" {
		name = report.Filename("chart_"+kind, "png", time.Now())
	}
	if err := os.WriteFile(name, png, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", name)
	return nil
}

func runMigrate(ctx context.Context, a *app, _ []string, out io.Writer) error {
	if a.pool == nil {
		return errors.New("DATABASE_URL is not set")
	}
	if err := database.RunMigrations(ctx, a.pool); err != nil {
		return err
	}
	fmt.Fprintln(out, "Migrations applied.")
	return nil
}

func writeFile(name string, fn func(io.Writer) error) (err error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return fn(f)
}
