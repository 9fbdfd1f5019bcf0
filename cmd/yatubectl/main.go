// Command yatubectl administers groups and inspects users.
//
//	yatubectl group create -title "Cats" -slug cats -description "All about cats"
//	yatubectl group list [-page N] [-per-page N]
//	yatubectl user list [-page N] [-per-page N]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/pkg/config"
	"yatube/pkg/db"
	"yatube/pkg/logger"
	"yatube/pkg/paginator"

	"github.com/joho/godotenv"
)

const usage = `usage:
  yatubectl group create -title T -slug S -description D
  yatubectl group list [-page N] [-per-page N]
  yatubectl user list [-page N] [-per-page N]`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.InitLogger("warn", false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	switch args[0] + " " + args[1] {
	case "group create":
		return createGroup(args[2:], out)
	case "group list":
		return listGroups(args[2:], out)
	case "user list":
		return listUsers(args[2:], out)
	default:
		return errors.New(usage)
	}
}

func createGroup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("group create", flag.ContinueOnError)
	title := fs.String("title", "", "Group title (max 200 characters)")
	slug := fs.String("slug", "", "URL slug: letters, digits, hyphens and underscores")
	description := fs.String("description", "", "Group description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	groups := service.NewGroupService(repository.NewGroupRepository())
	group, err := groups.Create(service.CreateGroupRequest{
		Title:       *title,
		Slug:        *slug,
		Description: *description,
	})
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	fmt.Fprintf(out, "Created group %q (/group/%s/)\n", group.Title, group.Slug)
	return nil
}

// pageFlags parses -page and -per-page for the list commands.
func pageFlags(name string, args []string) (page string, perPage int, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	p := fs.String("page", "1", "Page number; out of range values select the first or last page")
	n := fs.Int("per-page", 50, "Rows per page")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}
	return *p, *n, nil
}

func listGroups(args []string, out io.Writer) error {
	raw, perPage, err := pageFlags("group list", args)
	if err != nil {
		return err
	}
	groups, err := service.NewGroupService(repository.NewGroupRepository()).List()
	if err != nil {
		return err
	}
	page := paginator.Paginate(groups, perPage, raw)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tTITLE")
	for _, g := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writePageFooter(out, page.Number, page.NumPages, page.Count)
}

func listUsers(args []string, out io.Writer) error {
	raw, perPage, err := pageFlags("user list", args)
	if err != nil {
		return err
	}
	users, err := repository.NewUserRepository().List()
	if err != nil {
		return err
	}
	page := paginator.Paginate(users, perPage, raw)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tNAME")
	for _, u := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.FullName())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writePageFooter(out, page.Number, page.NumPages, page.Count)
}

func writePageFooter(out io.Writer, number, numPages int, count int64) error {
	_, err := fmt.Fprintf(out, "page %d of %d (%d total)\n", number, numPages, count)
	return err
}
