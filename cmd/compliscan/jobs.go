package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jdziat/compliscan"
	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/export"
	"github.com/jdziat/compliscan/pkg/fanout"
	"github.com/jdziat/compliscan/pkg/poller"
	"github.com/jdziat/compliscan/pkg/recent"
	"github.com/jdziat/compliscan/pkg/results"
)

type viewFlags struct {
	band    *string
	country *string
	sort    *string
	order   *string
}

func addViewFlags(fs *flag.FlagSet) *viewFlags {
	return &viewFlags{
		band:    fs.String("band", "all", "risk band to show: all, high, medium or low"),
		country: fs.String("country", "", "only show records from this country"),
		sort:    fs.String("sort", "", "sort column: recordId, name, country, matchName, riskScore or processedAt"),
		order:   fs.String("order", "", "sort order: asc or desc"),
	}
}

func (f *viewFlags) view() (compliscan.View, error) {
	v := compliscan.DefaultView()
	b, err := results.ParseBand(*f.band)
	if err != nil {
		return v, err
	}
	v.Band = b
	v.Country = *f.country
	if *f.sort != "" {
		key, err := results.ParseSortKey(*f.sort)
		if err != nil {
			return v, err
		}
		if key != v.SortKey {
			v = v.Toggle(key)
		}
	}
	switch *f.order {
	case "":
	case "asc":
		v.SortDir = compliscan.Asc
	case "desc":
		v.SortDir = compliscan.Desc
	default:
		return v, fmt.Errorf("%w: order must be asc or desc", compliscan.ErrInvalidArgument)
	}
	return v, nil
}

// openArchive returns nil when no archive is configured.
func openArchive(ctx context.Context, e *env) (*compliscan.Archive, error) {
	if e.cfg.ArchiveDSN == "" {
		return nil, nil
	}
	a, err := compliscan.OpenArchive(ctx, e.cfg.ArchiveDSN)
	if err != nil {
		return nil, err
	}
	a.SetLogger(e.logger)
	return a, nil
}

func cmdWatch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "watch")
	interval := fs.Duration("interval", e.cfg.PollInterval, "time between status checks")
	pageSize := fs.Int("page-size", e.cfg.PageSize, "results page size")
	all := fs.Bool("all", false, "load every results page once the job is done")
	concurrency := fs.Int("concurrency", fanout.DefaultConcurrency, "jobs polled at once when watching several")
	failFast := fs.Bool("fail-fast", false, "stop watching the other jobs when one fails")
	vf := addViewFlags(fs)
	ids, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: watch needs at least one job id", compliscan.ErrInvalidArgument)
	}
	view, err := vf.view()
	if err != nil {
		return err
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	if len(ids) == 1 {
		if err := compliscan.ValidateJobID(ids[0]); err != nil {
			return err
		}
		return watchJob(ctx, e, svc, ids[0], *interval, *pageSize, *all, view)
	}

	opts := []fanout.Option{
		fanout.WithInterval(*interval),
		fanout.WithPageSize(*pageSize),
		fanout.WithConcurrency(*concurrency),
		fanout.WithLogger(e.logger),
	}
	if *all {
		opts = append(opts, fanout.LoadAll())
	}
	if *failFast {
		opts = append(opts, fanout.FailFast())
	}
	res, err := fanout.WatchAll(ctx, svc, ids, opts...)
	for _, r := range res {
		printOutcome(e.out, r, view)
	}
	if err != nil {
		return err
	}
	if !fanout.AllSucceeded(res) {
		return fmt.Errorf("%d of %d jobs did not finish", len(res)-fanout.SuccessCount(res), len(res))
	}
	return nil
}

func watchJob(ctx context.Context, e *env, svc compliscan.Service, jobID string, interval time.Duration, pageSize int, all bool, view compliscan.View) error {
	archive, err := openArchive(ctx, e)
	if err != nil {
		return err
	}

	accOpts := []results.Option{results.WithLogger(e.logger)}
	if archive != nil {
		accOpts = append(accOpts, results.OnPage(archive.PageHook()))
		defer func() {
			if err := archive.Flush(context.WithoutCancel(ctx)); err != nil {
				e.logger.Error("failed to flush archive", "error", err)
			}
		}()
	}
	acc := compliscan.NewAccumulator(svc, accOpts...)

	p, err := compliscan.NewPoller(svc, jobID,
		compliscan.WithInterval(interval),
		compliscan.WithPageSize(pageSize),
		compliscan.WithAccumulator(acc),
		poller.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	events := p.Events()
	defer p.Unsubscribe(events)

	recorded := make(chan struct{})
	if archive != nil {
		archived := p.Events()
		defer p.Unsubscribe(archived)
		go func() {
			archive.Record(ctx, archived)
			close(recorded)
		}()
	} else {
		close(recorded)
	}

	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	var last core.JobStatus
	show := func(ev core.Event) {
		if u, ok := ev.(*core.JobUpdated); ok && u.Job.Status != last {
			last = u.Job.Status
			printJob(e.out, u.Job)
		}
	}
loop:
	for {
		select {
		case ev := <-events:
			show(ev)
		case <-p.Done():
			for {
				select {
				case ev := <-events:
					show(ev)
				default:
					break loop
				}
			}
		}
	}

	if p.State() == compliscan.StateStopped {
		return ctx.Err()
	}
	<-recorded
	if err := p.Err(); err != nil {
		return err
	}

	if all {
		if err := acc.LoadAll(ctx, jobID, pageSize); err != nil {
			return err
		}
	}
	printSummary(e.out, p.Snapshot().Summary)
	printItems(e.out, view.Apply(acc.Items()))
	if acc.HasMore() {
		fmt.Fprintf(e.out, "Showing %d loaded results; use -all to load the rest.\n", acc.Len())
	}
	return nil
}

// resultsSource reads from the archive when asked, otherwise from the service.
func resultsSource(ctx context.Context, e *env, fromArchive bool) (core.Backend, error) {
	if !fromArchive {
		return e.service()
	}
	a, err := openArchive(ctx, e)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.New("no archive configured: set COMPLISCAN_ARCHIVE_DSN")
	}
	return a, nil
}

func cmdResults(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "results")
	pageSize := fs.Int("page-size", e.cfg.PageSize, "results page size")
	all := fs.Bool("all", false, "follow the cursor to the last page")
	fromArchive := fs.Bool("archive", false, "read from the local archive instead of the API")
	vf := addViewFlags(fs)
	jobID, err := jobIDArg(fs, args)
	if err != nil {
		return err
	}
	view, err := vf.view()
	if err != nil {
		return err
	}
	src, err := resultsSource(ctx, e, *fromArchive)
	if err != nil {
		return err
	}

	job, err := src.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	printJob(e.out, job)
	if job.Status != compliscan.StatusDone {
		if job.Status == compliscan.StatusFailed {
			return core.NewJobFailedError(job)
		}
		fmt.Fprintln(e.out, "Job is still running; use watch to wait for it.")
		return nil
	}

	acc := compliscan.NewAccumulator(src, results.WithLogger(e.logger))
	if err := acc.LoadFirstPage(ctx, jobID, *pageSize); err != nil {
		return err
	}
	if *all {
		if err := acc.LoadAll(ctx, jobID, *pageSize); err != nil {
			return err
		}
	}
	printSummary(e.out, job.Summary)
	printItems(e.out, view.Apply(acc.Items()))
	if acc.HasMore() {
		fmt.Fprintf(e.out, "Showing %d loaded results; use -all to load the rest.\n", acc.Len())
	}
	return nil
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "export")
	out := fs.String("o", "", "output file (.csv or .xlsx)")
	format := fs.String("format", "", "csv or xlsx; defaults to the output file extension")
	fromArchive := fs.Bool("archive", false, "read from the local archive instead of the API")
	vf := addViewFlags(fs)
	jobID, err := jobIDArg(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("%w: -o is required", compliscan.ErrInvalidArgument)
	}
	f := export.FormatFromPath(*out)
	if *format != "" {
		if f, err = export.ParseFormat(*format); err != nil {
			return err
		}
	}
	view, err := vf.view()
	if err != nil {
		return err
	}
	src, err := resultsSource(ctx, e, *fromArchive)
	if err != nil {
		return err
	}

	job, err := src.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == compliscan.StatusFailed {
		return core.NewJobFailedError(job)
	}
	if job.Status != compliscan.StatusDone {
		return fmt.Errorf("job %s is %s; results are not ready", jobID, job.Status)
	}

	acc := compliscan.NewAccumulator(src, results.WithLogger(e.logger))
	if err := acc.LoadFirstPage(ctx, jobID, compliscan.MaxPageSize); err != nil {
		return err
	}
	if err := acc.LoadAll(ctx, jobID, compliscan.MaxPageSize); err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return err
	}
	report := compliscan.Report{JobID: jobID, Summary: job.Summary, Items: view.Apply(acc.Items())}
	if err := compliscan.WriteReport(file, f, report); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	e.logger.Info("export written", "job_id", jobID, "path", *out, "items", len(report.Items))
	fmt.Fprintf(e.out, "Wrote %d results to %s\n", len(report.Items), *out)
	return nil
}

func cmdRecent(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "recent")
	limit := fs.Int("limit", e.cfg.RecentLimit, "jobs per page")
	more := fs.Int("more", 0, "extra pages to load")
	watch := fs.Bool("watch", false, "keep refreshing the list")
	every := fs.String("every", e.cfg.Refresh, "refresh schedule: a duration or a cron expression")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	feed := compliscan.NewFeed(svc, recent.WithLimit(*limit), recent.WithLogger(e.logger))

	if *watch {
		sched, err := compliscan.ParseSchedule(*every)
		if err != nil {
			return err
		}
		err = feed.Watch(ctx, sched, func(jobs []core.Job, err error) {
			if err != nil {
				fmt.Fprintln(e.out, recent.FailureMessage)
				return
			}
			fmt.Fprintf(e.out, "\n%s\n", feed.RefreshedAt().Format(time.TimeOnly))
			printJobs(e.out, jobs)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if err := feed.Refresh(ctx); err != nil {
		e.logger.Warn("recent jobs failed", "error", err)
		return errors.New(recent.FailureMessage)
	}
	for i := 0; i < *more && feed.HasMore(); i++ {
		if err := feed.LoadMore(ctx); err != nil {
			e.logger.Warn("recent jobs failed", "error", err)
			return errors.New(recent.FailureMessage)
		}
	}
	printJobs(e.out, feed.Jobs())
	if feed.HasMore() {
		fmt.Fprintln(e.out, "More jobs available; use -more to load them.")
	}
	return nil
}

func cmdUpload(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "upload")
	country := fs.String("country", "", "default country for rows without one")
	watch := fs.Bool("watch", false, "watch the new job until it settles")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: upload needs exactly one CSV file", compliscan.ErrInvalidArgument)
	}

	f, err := os.Open(pos[0])
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	svc, err := e.service()
	if err != nil {
		return err
	}
	jobID, err := svc.Upload(ctx, filepath.Base(pos[0]), f, info.Size(), *country)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Submitted job %s\n", jobID)
	if !*watch {
		return nil
	}
	return watchJob(ctx, e, svc, jobID, e.cfg.PollInterval, e.cfg.PageSize, false, compliscan.DefaultView())
}
