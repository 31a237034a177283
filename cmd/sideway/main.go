package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sidewayqr/internal/api"
	"sidewayqr/internal/attendance"
	"sidewayqr/internal/config"
	"sidewayqr/internal/metrics"
	"sidewayqr/internal/model"
	"sidewayqr/internal/notify"
)

const attendedToast = "Successfully attended class!"

type options struct {
	cmd         string
	email       string
	password    string
	payload     string
	query       string
	server      string
	session     string
	interval    time.Duration
	metricsAddr string
}

func main() {
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "events", "login|events|scan|refresh|watch|logout|search")
	flag.StringVar(&opts.email, "email", "", "login email")
	flag.StringVar(&opts.password, "password", "", "login password")
	flag.StringVar(&opts.payload, "payload", "", "scanned QR payload <eventId>:<code>; empty reads one per line from stdin")
	flag.StringVar(&opts.query, "query", "", "event name filter for -cmd search")
	flag.StringVar(&opts.server, "server", cfg.APIURL, "backend base URL")
	flag.StringVar(&opts.session, "session", cfg.SessionBackend, "credential store: file|redis|postgres|sqlite|memory")
	flag.DurationVar(&opts.interval, "interval", 30*time.Second, "refresh interval for -cmd watch")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", cfg.MetricsAddr, "serve client metrics on this address")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		stop()
		log.Fatalf("%s failed: %v", opts.cmd, err)
	}
}

func run(ctx context.Context, cfg config.App, opts options, in io.Reader, w io.Writer) error {
	out := &lockedWriter{w: w}
	creds, closeStore, err := openStore(ctx, opts.session, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("close session store: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	client := api.New(opts.server, creds, cfg.HTTPTimeout)
	client.Metrics = metrics.NewClient(reg)
	if opts.metricsAddr != "" {
		go serveMetrics(opts.metricsAddr, reg)
	}

	bus := notify.NewInMemory(64)
	sess := attendance.New(client, bus)
	defer sess.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consume(bus, out)
	}()
	defer func() {
		bus.Close()
		wg.Wait()
	}()

	switch opts.cmd {
	case "login":
		email, password := opts.email, opts.password
		if email == "" || password == "" {
			return errors.New("-email and -password are required")
		}
		if err := sess.Login(ctx, email, password); err != nil {
			return err
		}
		fmt.Fprintf(out, "Logged in as %s.\n", email)
		printEvents(out, sess.Snapshot().Events)
		return nil
	case "logout":
		if err := sess.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "events":
		if err := refresh(ctx, sess); err != nil {
			return err
		}
		printEvents(out, sess.Snapshot().Events)
		return nil
	case "refresh":
		if err := refresh(ctx, sess); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d attended events.\n", len(sess.Snapshot().Events))
		return nil
	case "search":
		if err := refresh(ctx, sess); err != nil {
			return err
		}
		printEvents(out, sess.Search(opts.query))
		return nil
	case "scan":
		if opts.payload != "" {
			return submit(ctx, sess, opts.payload, out)
		}
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if err := submit(ctx, sess, line, out); err != nil {
				log.Printf("scan %q: %v", line, err)
			}
		}
		return sc.Err()
	case "watch":
		return watch(ctx, sess, opts.interval, out)
	default:
		return fmt.Errorf("unknown command %q", opts.cmd)
	}
}

// refresh treats a lost session as a normal state rather than a failure.
func refresh(ctx context.Context, sess *attendance.Session) error {
	err := sess.Refresh(ctx)
	if err == nil || errors.Is(err, api.ErrUnauthenticated) || errors.Is(err, attendance.ErrSuperseded) {
		return nil
	}
	return err
}

func submit(ctx context.Context, sess *attendance.Session, payload string, out io.Writer) error {
	outcome, err := sess.SubmitScan(ctx, payload)
	if err != nil {
		return err
	}
	switch outcome {
	case api.OutcomeAlreadyMarked:
		fmt.Fprintln(out, "Attendance already recorded.")
	case api.OutcomeInvalid:
		fmt.Fprintln(out, "Invalid QR code.")
	case api.OutcomeServerError:
		fmt.Fprintln(out, "Server error, try again later.")
	}
	return nil
}

func watch(ctx context.Context, sess *attendance.Session, interval time.Duration, out io.Writer) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := refresh(ctx, sess); err != nil {
			if errors.Is(err, attendance.ErrAbandoned) {
				return nil
			}
			log.Printf("refresh failed: %v", err)
		} else {
			printEvents(out, sess.Snapshot().Events)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// lockedWriter serializes writes from the command and the notification consumer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func consume(bus *notify.InMemory, out io.Writer) {
	ch, err := bus.Consume(context.Background())
	if err != nil {
		log.Printf("consume notifications: %v", err)
		return
	}
	for n := range ch {
		switch n.Kind {
		case notify.Attended:
			fmt.Fprintln(out, attendedToast)
		case notify.NeedsLogin:
			fmt.Fprintln(out, "Not logged in. Run: sideway -cmd login -email <email> -password <password>")
		}
	}
}

func printEvents(out io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(out, "not found")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tEND")
	for _, evt := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", evt.ID, evt.Name, formatTime(evt.StartTime), formatTime(evt.EndTime))
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("client metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics server: %v", err)
	}
}
