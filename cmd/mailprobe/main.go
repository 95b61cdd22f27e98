// Command mailprobe checks a list of email addresses for deliverability
// and optionally sends the summary to a Telegram chat.
//
//	mailprobe emails.txt
//	mailprobe -email user@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/mailprobe"
	"github.com/optimode/mailprobe/internal/config"
	"github.com/optimode/mailprobe/internal/input"
	"github.com/optimode/mailprobe/internal/logging"
	"github.com/optimode/mailprobe/internal/notify"
	"github.com/optimode/mailprobe/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errUsage marks errors after which the usage text is printed.
var errUsage = errors.New("usage")

type options struct {
	email      string
	configFile string
	workers    int
	notify     bool
	json       bool
	file       string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("mailprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.email, "email", "", "verify a single address instead of a file")
	fs.StringVar(&o.configFile, "config", "", "config file (default $CONFIG or "+config.DefaultPath+")")
	fs.IntVar(&o.workers, "workers", 0, "concurrent probes (default from config)")
	fs.BoolVar(&o.notify, "notify", false, "send the summary to Telegram")
	fs.BoolVar(&o.json, "json", false, "print results as JSON")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage:")
		_, _ = fmt.Fprintln(stderr, "  mailprobe [flags] emails.txt")
		_, _ = fmt.Fprintln(stderr, "  mailprobe [flags] -email user@example.com")
		_, _ = fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
		_, _ = fmt.Fprintln(stderr, "\nEnvironment:")
		_, _ = fmt.Fprint(stderr, config.Usage())
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch {
	case o.email != "" && fs.NArg() > 0:
		fs.Usage()
		return o, errors.Wrap(errUsage, "give either a file or -email")
	case o.email == "" && fs.NArg() != 1:
		fs.Usage()
		return o, errors.Wrap(errUsage, "expected one input file")
	case o.email == "":
		o.file = fs.Arg(0)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log := logging.New()
	log.SetOutput(stderr)

	o, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.WithError(err).Error("invalid arguments")
		return 1
	}

	if err := verify(ctx, o, log, stdout); err != nil {
		log.WithError(err).Error("mailprobe failed")
		return 1
	}
	return 0
}

func loadConfig(o options) (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile, config.DotEnvFile)
	}
	return config.Load()
}

func verify(ctx context.Context, o options, log *logrus.Logger, stdout io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if o.notify && !cfg.Telegram.Enabled() {
		return errors.New("-notify needs TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	emails := []string{o.email}
	if o.email == "" {
		if emails, err = input.ReadFile(o.file); err != nil {
			return err
		}
	}

	v := mailprobe.New(cfg.Verifier.Engine()).WithLogger(log)
	if cfg.Verifier.Nameserver != "" {
		v = v.WithNameserver(cfg.Verifier.Nameserver)
	}
	if cfg.Verifier.Proxy != "" {
		v = v.WithProxy(cfg.Verifier.Proxy)
	}

	workers := cfg.Verifier.Workers
	if o.workers > 0 {
		workers = o.workers
	}
	opts := mailprobe.ConcurrencyOptions{Workers: workers}

	log.WithFields(logrus.Fields{"count": len(emails), "workers": opts.Workers}).Info("verifying addresses")

	var results []mailprobe.Result
	if o.json {
		if results, err = v.VerifyMany(ctx, emails, opts); err != nil {
			return errors.Wrap(err, "interrupted")
		}
		if err := report.JSON(stdout, results); err != nil {
			return errors.Wrap(err, "write results")
		}
	} else {
		report.Banner(stdout, "EMAIL VERIFICATION")
		results = make([]mailprobe.Result, 0, len(emails))
		err = v.VerifyEach(ctx, emails, func(idx int, r mailprobe.Result) {
			report.Write(stdout, idx+1, r)
			results = append(results, r)
		}, opts)
		report.Totals(stdout, results)
		if err != nil {
			return errors.Wrapf(err, "interrupted after %d of %d", len(results), len(emails))
		}
	}

	if !o.notify {
		return nil
	}
	bot := notify.New(cfg.Telegram.APIURL, cfg.Telegram.Token).WithParseMode(cfg.Telegram.ParseMode)
	id, err := bot.Send(ctx, cfg.Telegram.ChatID, report.Summary(results))
	if err != nil {
		return errors.Wrap(err, "notify")
	}
	log.WithField("message_id", id).Info("summary sent to Telegram")
	return nil
}
