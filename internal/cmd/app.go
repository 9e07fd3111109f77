package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mkowalczk/jobscout/internal/config"
	"github.com/mkowalczk/jobscout/internal/email"
	"github.com/mkowalczk/jobscout/internal/jsearch"
	"github.com/mkowalczk/jobscout/internal/network"
	"github.com/mkowalczk/jobscout/internal/runstatus"
	"github.com/mkowalczk/jobscout/internal/salary"
	"github.com/mkowalczk/jobscout/internal/scrape"
	"github.com/mkowalczk/jobscout/internal/search"
	"github.com/mkowalczk/jobscout/internal/seen"
	"github.com/mkowalczk/jobscout/internal/store"
	"github.com/mkowalczk/jobscout/internal/usage"
)

// app bundles the wired pipeline components a command needs.
type app struct {
	orch     *search.Orchestrator
	usage    *usage.Recorder
	searches *store.Store
	history  *seen.Store
	tracker  *runstatus.Tracker
	runner   *search.Runner
	mailer   *email.Sender
}

func buildApp(ctx *Context, proxiesFlag string) (*app, error) {
	cfg := ctx.Config
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set JOBSCOUT_API_KEY or api_key in %s", config.ConfigFileName)
	}

	proxies, err := config.LoadProxies(proxiesFlag)
	if err != nil {
		return nil, err
	}
	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, 10*time.Minute)
		if err != nil {
			return nil, err
		}
	}
	httpClient, err := network.NewClient(rotator)
	if err != nil {
		return nil, err
	}

	usageRec, err := usage.Open(filepath.Join(cfg.DataDir, "usage.json"))
	if err != nil {
		return nil, err
	}
	searches, err := store.Open(filepath.Join(cfg.DataDir, "searches.json"))
	if err != nil {
		return nil, err
	}
	history, err := seen.Open(filepath.Join(cfg.DataDir, "seen.json"))
	if err != nil {
		return nil, err
	}

	fetcher := jsearch.NewClient(httpClient, cfg.APIKey, cfg.APIHost, usageRec, ctx.Logger)
	if cfg.MaxTotalPages > 0 {
		fetcher.MaxTotalPages = cfg.MaxTotalPages
	}
	if cfg.PageTimeout > 0 {
		fetcher.PageTimeout = cfg.PageTimeoutDuration()
	}
	if cfg.FetchBudget > 0 {
		fetcher.FetchBudget = cfg.FetchBudgetDuration()
	}

	parser := salary.NewParser()
	if cfg.SalaryFloor > 0 {
		parser.Floor = float64(cfg.SalaryFloor)
	}

	scraper := scrape.New(httpClient, ctx.Logger)
	orch := search.NewOrchestrator(fetcher, scraper, parser, ctx.Logger).
		WithScrapeCap(cfg.ScrapeCap)

	mailer := email.NewSender(email.Settings{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.EmailFrom,
		AdminEmail: cfg.AdminEmail,
	}, ctx.Logger)

	tracker := runstatus.New()
	runner := search.NewRunner(searches, tracker, orch, mailer, ctx.Logger)

	return &app{
		orch:     orch,
		usage:    usageRec,
		searches: searches,
		history:  history,
		tracker:  tracker,
		runner:   runner,
		mailer:   mailer,
	}, nil
}
