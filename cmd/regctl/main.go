// Command regctl talks to a running registration server.
//
//	regctl [-url URL] fields
//	regctl [-url URL] submit Label=Value...
//	regctl [-url URL] -user U -password P submissions
//	regctl [-url URL] -user U -password P delete-submission ID
//	regctl [-url URL] -user U -password P export [-format csv|xlsx] [-o FILE]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/client"
	"github.com/mbolis/event-registration/export"
	"github.com/mbolis/event-registration/form"
	"github.com/mbolis/event-registration/log"
)

type options struct {
	url      string
	user     string
	password string
	timeout  time.Duration
}

func main() {
	opts := options{}
	flag.StringVar(&opts.url, "url", envOr("REG_URL", "http://localhost"), "server base URL")
	flag.StringVar(&opts.user, "user", os.Getenv("REG_ADMIN_USER"), "admin user name")
	flag.StringVar(&opts.password, "password", os.Getenv("REG_ADMIN_PASSWORD"), "admin password")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, opts, flag.Args(), os.Stdout); err != nil {
		log.Fatal("regctl:", err)
	}
}

func usage() {
	fmt.Fprintln(flag.CommandLine.Output(), "usage: regctl [flags] fields|submit|submissions|delete-submission|export [args]")
	flag.PrintDefaults()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, opts options, args []string, out io.Writer) error {
	c := client.New(opts.url)
	login := func() error {
		if opts.user == "" {
			return errors.New("admin commands need -user and -password")
		}
		_, err := c.Login(ctx, opts.user, opts.password)
		return errors.Wrap(err, "login")
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "fields":
		return listFields(ctx, c, out)
	case "submit":
		return submit(ctx, c, rest, out)
	case "submissions":
		if err := login(); err != nil {
			return err
		}
		return listSubmissions(ctx, c, out)
	case "delete-submission":
		if len(rest) != 1 {
			return errors.New("usage: delete-submission ID")
		}
		if err := login(); err != nil {
			return err
		}
		return c.DeleteSubmission(ctx, rest[0])
	case "export":
		if err := login(); err != nil {
			return err
		}
		return exportSubmissions(ctx, c, rest, out)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func listFields(ctx context.Context, c *client.Client, out io.Writer) error {
	fields, err := c.Fields(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tLABEL\tINPUT\tREQUIRED\tCHOICES")
	for i, in := range form.Build(fields) {
		choices := make([]string, 0, len(in.Choices))
		for _, ch := range in.Choices {
			choices = append(choices, ch.Label)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", fields[i].Order, in.Label, in.Widget, in.Required, strings.Join(choices, ", "))
	}
	return tw.Flush()
}

// submit fills the current form from Label=Value arguments, checks the
// required inputs, and posts it.
func submit(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fields, err := c.Fields(ctx)
	if err != nil {
		return err
	}
	inputs := form.Build(fields)
	values := form.Blank(inputs)
	for _, arg := range args {
		label, value, ok := strings.Cut(arg, "=")
		if !ok {
			return errors.Errorf("bad answer %q, want Label=Value", arg)
		}
		if _, known := values[label]; !known {
			return errors.Errorf("no field labelled %q", label)
		}
		values[label] = value
	}
	if err = form.Validate(inputs, values); err != nil {
		return err
	}
	for _, in := range inputs {
		if d, ok := in.Describe(values[in.Label]); ok {
			fmt.Fprintf(out, "%s: %s, %s", values[in.Label], d.Date, d.Place)
			if d.Amount != "" {
				fmt.Fprintf(out, ", %s", d.Amount)
			}
			fmt.Fprintln(out)
		}
	}

	sub, err := c.Submit(ctx, form.Answers(inputs, values))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "submitted", sub.ID)
	return nil
}

func listSubmissions(ctx context.Context, c *client.Client, out io.Writer) error {
	subs, err := c.Submissions(ctx)
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Fprintf(out, "%s\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339))
		labels := make([]string, 0, len(s.Answers))
		for label := range s.Answers {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(out, "\t%s: %s\n", label, s.Answers[label])
		}
	}
	return nil
}

func exportSubmissions(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatName := fs.String("format", "csv", "csv or xlsx")
	path := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, ok := export.ParseFormat(*formatName)
	if !ok {
		return errors.Errorf("unsupported format %q", *formatName)
	}

	if *path != "" {
		f, err := os.Create(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return c.Export(ctx, format, out)
}
