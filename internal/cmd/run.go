package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/runstatus"
)

type RunCmd struct {
	SearchID string `arg:"" help:"Saved search id to run."`
	Wait     bool   `help:"Poll until the run finishes and print the final status."`
	Timeout  int    `help:"Seconds to wait with --wait." default:"180"`
	Proxies  string `help:"Comma-separated proxy URLs." env:"JOBSCOUT_PROXIES"`
}

func (r *RunCmd) Run(ctx *Context) error {
	application, err := buildApp(ctx, r.Proxies)
	if err != nil {
		return err
	}

	token, err := application.runner.StartRun(r.SearchID)
	if err != nil {
		return err
	}
	ctx.UI.Infof("run started, status token: %s", token)

	if !r.Wait {
		return nil
	}

	deadline := time.Now().Add(time.Duration(r.Timeout) * time.Second)
	for {
		status, err := application.tracker.Get(token)
		if err != nil {
			return err
		}
		if status.Status != models.RunRunning {
			return printStatus(ctx, status)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("run still in progress after %ds", r.Timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// StatusCmd reports the state of a background run. Run tokens live in the
// memory of the serve process, so the lookup goes over HTTP rather than a
// local tracker.
type StatusCmd struct {
	Token string `arg:"" help:"Status token returned when the run started."`
	URL   string `help:"Base URL of a running server." default:"http://localhost:8080"`
}

func (s *StatusCmd) Run(ctx *Context) error {
	status, err := fetchRunStatus(s.URL, s.Token)
	if err != nil {
		return err
	}
	return printStatus(ctx, status)
}

func printStatus(ctx *Context, status models.RunStatus) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	switch status.Status {
	case models.RunCompleted:
		ctx.UI.Successf("completed: %d jobs found", status.JobsFound)
	case models.RunError, models.RunTimeout:
		ctx.UI.Errorf("%s: %s", status.Status, status.Error)
	default:
		ctx.UI.Infof("%s: %s", status.Status, status.Message)
	}
	return nil
}

func fetchRunStatus(baseURL, token string) (models.RunStatus, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/runs/" + token

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return models.RunStatus{}, fmt.Errorf("reach server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return models.RunStatus{}, runstatus.ErrNotFound
	default:
		return models.RunStatus{}, fmt.Errorf("server returned %s", resp.Status)
	}

	var status models.RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return models.RunStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}
