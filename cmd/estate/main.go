// Command estate signs in to the marketplace backend and prints the account
// overview: wallet, recent transactions, notifications, favorites and the
// sidebar menu for the user's role.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jrsteele09/go-estate-client/favorites"
	"github.com/jrsteele09/go-estate-client/internal/config"
	"github.com/jrsteele09/go-estate-client/internal/logger"
	"github.com/jrsteele09/go-estate-client/store"
	"github.com/jrsteele09/go-estate-client/wallet"
	"github.com/rs/zerolog"
)

type options struct {
	email     string
	password  string
	deposit   float64
	markRead  bool
	favorite  string
	favType   string
	logoutAll bool
}

func main() {
	c := config.Load()
	opts := parseFlags()
	log := logger.New(c.GetEnv(), c.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, opts, log, os.Stdout); err != nil {
		log.Error().Err(err).Msg("estate")
		os.Exit(1)
	}
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.email, "email", config.GetEnv("ESTATE_EMAIL", ""), "account email")
	flag.StringVar(&o.password, "password", config.GetEnv("ESTATE_PASSWORD", ""), "account password")
	flag.Float64Var(&o.deposit, "deposit", 0, "start a VNPay deposit of this amount and print the checkout URL")
	flag.BoolVar(&o.markRead, "mark-read", false, "mark every notification as read")
	flag.StringVar(&o.favorite, "favorite", "", "toggle the favorite with this id")
	flag.StringVar(&o.favType, "favorite-type", string(favorites.TypeProperty), "type of the -favorite item: property or project")
	flag.BoolVar(&o.logoutAll, "logout-all", false, "end every session of the account when done")
	flag.Parse()
	return o
}

func run(ctx context.Context, c config.ClientConfig, o options, log zerolog.Logger, out io.Writer) error {
	facade, err := store.New(c,
		store.WithLogger(log),
		store.WithRedirector(wallet.RedirectFunc(func(_ context.Context, url string) error {
			_, err := fmt.Fprintf(out, "Open this URL to complete the deposit:\n  %s\n\n", url)
			return err
		})),
	)
	if err != nil {
		return err
	}

	if !facade.InitializeAuth(ctx) {
		if o.email == "" || o.password == "" {
			return fmt.Errorf("no session to restore: pass -email and -password or set ESTATE_EMAIL and ESTATE_PASSWORD")
		}
		if _, err := facade.Login(ctx, o.email, o.password); err != nil {
			return err
		}
	}

	if o.deposit > 0 {
		if _, err := facade.DepositToWallet(ctx, wallet.DepositRequest{Amount: o.deposit}); err != nil {
			return err
		}
	}
	if o.favorite != "" {
		if _, err := facade.FetchFavorites(ctx); err != nil {
			return err
		}
		if _, err := facade.ToggleFavorite(ctx, favorites.Item{ID: o.favorite, Type: favorites.ItemType(o.favType)}); err != nil {
			return err
		}
	}
	if o.markRead {
		if err := facade.MarkAllNotificationsAsRead(ctx); err != nil {
			return err
		}
	}

	if err := facade.LoadAccount(ctx); err != nil {
		return err
	}
	if _, err := facade.FetchSidebarConfig(ctx); err != nil {
		return err
	}
	if err := printAccount(out, facade); err != nil {
		return err
	}

	if o.logoutAll {
		return facade.LogoutAll(ctx)
	}
	return facade.Logout(ctx)
}

func printAccount(out io.Writer, f *store.Facade) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	user := f.Session.User()
	fmt.Fprintf(tw, "Signed in as\t%s <%s> (%s)\n\n", user.Username, user.Email, user.Role)

	w := f.Wallet.Snapshot()
	if w.Info != nil {
		fmt.Fprintf(tw, "Balance\t%s\n", formatVND(w.Info.Balance))
		fmt.Fprintf(tw, "Income\t%s\n", formatVND(w.Info.TotalIncome))
		fmt.Fprintf(tw, "Spending\t%s\n", formatVND(w.Info.TotalSpending))
		fmt.Fprintf(tw, "Bonus\t%s\n\n", formatVND(w.Info.BonusEarned))
	}

	fmt.Fprintln(tw, "DATE\tTYPE\tSTATUS\tAMOUNT\tDESCRIPTION")
	for _, tx := range w.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.Status, formatVND(tx.Amount), tx.Description)
	}
	if w.HasMore {
		fmt.Fprintln(tw, "...\t\t\t\t")
	}

	n := f.Notifications.Snapshot()
	fmt.Fprintf(tw, "\nNotifications (%d unread)\n", n.UnreadCount)
	for _, item := range n.Notifications {
		marker := " "
		if !item.Read {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, item.Title, item.Message)
	}

	fmt.Fprintln(tw, "\nFavorites")
	for _, item := range f.Favorites.Items() {
		fmt.Fprintf(tw, "\t%s\t%s\t%s\n", item.Type, item.Title, item.Location)
	}

	fmt.Fprintln(tw, "\nMenu")
	for _, section := range f.SidebarSections() {
		title := "Other"
		if section.Group != nil {
			title = section.Group.Title
		}
		names := make([]string, 0, len(section.Items))
		for _, item := range section.Items {
			names = append(names, item.Name)
		}
		fmt.Fprintf(tw, "\t%s\t%s\n", title, strings.Join(names, ", "))
	}
	return tw.Flush()
}

// formatVND renders amount with thousands separators, e.g. 2,000,000 ₫.
func formatVND(amount float64) string {
	digits := fmt.Sprintf("%.0f", amount)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " ₫"
}
