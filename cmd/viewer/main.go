// Viewer is a read-only inspector for the hub's badger store. It prints a
// group's messages, polls and experience log without touching the running
// process.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"trip-hub/internal"
	"trip-hub/repositories"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	groupID := flag.String("group", "", "Group to inspect")
	limit := flag.Int("limit", 50, "Max messages to print")
	showPolls := flag.Bool("polls", false, "Print the group's polls")
	flag.Parse()

	if *groupID == "" {
		log.Fatal("Provide -group")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := internal.GetLoggerFromString("WARN")
	messages := repositories.NewMessageRepository(db, logger)
	polls := repositories.NewPollRepository(db, logger)
	contexts := repositories.NewContextRepository(db, logger)

	printMessages(messages, *groupID, *limit)
	printContext(contexts, *groupID)
	if *showPolls {
		printPolls(polls, *groupID)
	}
}

func printMessages(repo repositories.MessageRepository, groupID string, limit int) {
	history, err := repo.History(groupID, limit)
	if err != nil {
		log.Fatal(err)
	}
	color.Bold.Printf("Messages of group %s (%d)\n", groupID, len(history))

	table := newTable()
	table.SetHeader([]string{"Time", "Author", "Intent", "Content", "Reports"})
	for _, m := range history {
		content := m.Content
		if m.MediaID != "" {
			content = fmt.Sprintf("[media %s %s]", m.MediaType, m.MediaID)
		}
		if len(content) > 60 {
			content = content[:60] + "…"
		}
		table.Append([]string{
			m.At.Format("15:04:05"),
			m.AuthorName,
			string(m.Intent),
			content,
			fmt.Sprintf("%d", m.ReportCount),
		})
	}
	table.Render()
}

func printContext(repo repositories.ContextRepository, groupID string) {
	ctx, err := repo.Get(groupID)
	if err != nil {
		log.Fatal(err)
	}
	if ctx == nil {
		color.Gray.Println("No stored context for this group")
		return
	}
	color.Bold.Println("\nContext")
	fmt.Printf("  plan: %s / %s / %d / %s (%s)\n",
		ctx.Plan.Destination, ctx.Plan.Date, ctx.Plan.PartySize, ctx.Plan.Style, ctx.Plan.Status)
	fmt.Printf("  intents: %v\n", ctx.Intents)
	fmt.Printf("  last message: %s, last reply: %s (%s)\n",
		ctx.LastMessageAt.Format("15:04:05"), ctx.LastReplyAt.Format("15:04:05"), ctx.LastPromptTag)

	if len(ctx.Experiences) > 0 {
		color.Bold.Println("\nExperience log")
		table := newTable()
		table.SetHeader([]string{"Time", "User", "Destinations", "Activities", "Message"})
		for _, e := range ctx.Experiences {
			msg := e.Message
			if len(msg) > 50 {
				msg = msg[:50] + "…"
			}
			table.Append([]string{
				e.At.Format("15:04:05"),
				e.User,
				strings.Join(e.Destinations, ","),
				strings.Join(e.Activities, ","),
				msg,
			})
		}
		table.Render()
	}
}

func printPolls(repo repositories.PollRepository, groupID string) {
	all, err := repo.ListByGroup(groupID, true)
	if err != nil {
		log.Fatal(err)
	}
	color.Bold.Printf("\nPolls (%d)\n", len(all))
	for _, p := range all {
		status := color.Green.Sprint(p.Status)
		if p.Status != "open" {
			status = color.Red.Sprint(p.Status)
		}
		fmt.Printf("%s [%s] %s\n", p.ID, status, p.Question)
		for _, o := range p.Options {
			fmt.Printf("    %3d  %s\n", o.Votes, o.Text)
		}
	}
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
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

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
