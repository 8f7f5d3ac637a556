package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"meister-eder/domain"
	"meister-eder/repositories"
	"meister-eder/storage"
)

// Read-only export of the current registrations, filterable for the
// playgroup leaders ("who comes on Wednesday indoor?").
func main() {
	_ = godotenv.Load()

	dataDir := flag.String("data", os.Getenv("DATA_DIR"), "Registration data directory")
	pgType := flag.String("type", "", "Filter by playgroup type (indoor|outdoor)")
	day := flag.String("day", "", "Filter by weekday (monday|wednesday|thursday)")
	channel := flag.String("channel", "", "Filter by channel (email|chat)")
	from := flag.String("from", "", "Only registrations submitted on/after this date (2006-01-02)")
	to := flag.String("to", "", "Only registrations submitted on/before this date (2006-01-02)")
	history := flag.String("history", "", "Show every version for one parent email instead of the overview")
	incomplete := flag.Bool("incomplete", false, "List open conversations that never completed")
	badgerPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to the conversation database (for -incomplete)")
	flag.Parse()

	logger := log.New(os.Stderr, "", 0)

	if *incomplete {
		renderIncomplete(logger, *badgerPath)
		return
	}

	store, err := storage.NewRegistrationStore(*dataDir, logs.GetLoggerFromString("WARN"))
	if err != nil {
		logger.Fatal("Error while opening registration store: ", err)
	}

	if *history != "" {
		records, err := store.History(*history)
		if err != nil {
			logger.Fatal(err)
		}
		renderHistory(records)
		return
	}

	filter := storage.Filter{
		Type:    domain.PlaygroupType(*pgType),
		Day:     domain.Weekday(*day),
		Channel: domain.Channel(*channel),
	}
	if *from != "" {
		t, err := time.Parse("2006-01-02", *from)
		if err != nil {
			logger.Fatal("Invalid -from date: ", err)
		}
		filter.From = t
	}
	if *to != "" {
		t, err := time.Parse("2006-01-02", *to)
		if err != nil {
			logger.Fatal("Invalid -to date: ", err)
		}
		filter.To = t.Add(24*time.Hour - time.Second)
	}

	records, err := store.List(filter)
	if err != nil {
		logger.Fatal(err)
	}
	renderOverview(records)
}

func renderOverview(records []domain.RegistrationRecord) {
	table := newTable([]string{"Child", "Born", "Types", "Days", "Parent", "Phone", "Version", "Submitted"})
	for _, rec := range records {
		table.Append([]string{
			rec.Child.FullName,
			rec.Child.DateOfBirth,
			joinTypes(rec.Booking.PlaygroupTypes),
			joinDays(rec.Booking.SelectedDays),
			rec.ParentGuardian.Email,
			rec.ParentGuardian.Phone,
			fmt.Sprintf("v%d", rec.Metadata.Version),
			rec.Metadata.SubmittedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	fmt.Printf("\n%d registration(s)\n", len(records))
}

func renderHistory(records []domain.RegistrationRecord) {
	table := newTable([]string{"Version", "Submitted", "Channel", "Days", "Changes"})
	for _, rec := range records {
		changes := lo.Keys(rec.Metadata.ChangeSummary)
		table.Append([]string{
			fmt.Sprintf("v%d", rec.Metadata.Version),
			rec.Metadata.SubmittedAt.Format("2006-01-02 15:04"),
			string(rec.Metadata.Channel),
			joinDays(rec.Booking.SelectedDays),
			strings.Join(changes, ", "),
		})
	}
	table.Render()
}

// renderIncomplete opens Badger read-only; BypassLockGuard allows reading
// while an agent cycle holds the lock.
func renderIncomplete(logger *log.Logger, badgerPath string) {
	opts := badger.DefaultOptions(badgerPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		logger.Fatal("Failed to open conversation database: ", err)
	}
	defer db.Close()

	repo := repositories.NewConversationRepository(db, logs.GetLoggerFromString("WARN"))
	states, err := repo.ListIncomplete()
	if err != nil {
		logger.Fatal(err)
	}

	table := newTable([]string{"Identity", "Channel", "Step", "Messages", "Last Activity"})
	for _, state := range states {
		table.Append([]string{
			state.Identity,
			string(state.Channel),
			string(state.FlowStep),
			fmt.Sprintf("%d", state.UserMessageCount()),
			state.LastActivity.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	fmt.Printf("\n%d open conversation(s)\n", len(states))
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func joinTypes(types []domain.PlaygroupType) string {
	return strings.Join(lo.Map(types, func(t domain.PlaygroupType, _ int) string { return string(t) }), "+")
}

func joinDays(days []domain.BookingDay) string {
	return strings.Join(lo.Map(days, func(d domain.BookingDay, _ int) string {
		return fmt.Sprintf("%s(%s)", d.Day, d.Type)
	}), ", ")
}
