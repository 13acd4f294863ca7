package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harvestguard/harvestguard-go/internal/store"
)

// statusRequestTimeout bounds the probe of the local daemon.
const statusRequestTimeout = 3 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine state, connectivity, and batch counts",
		Long: `Query the running engine for its session, scheduler, and connectivity
state. If the engine is not running, falls back to reading batch counts
directly from the state database.`,
		RunE: runStatus,
	}
}

// engineStatus mirrors the daemon's /status response.
type engineStatus struct {
	Version         string `json:"version"`
	View            string `json:"view"`
	Authenticated   bool   `json:"authenticated"`
	TutorialVisible bool   `json:"tutorial_visible"`
	Offline         bool   `json:"offline"`
	Scheduler       string `json:"scheduler"`
	Toast           string `json:"toast,omitempty"`
	TotalBatches    int    `json:"total_batches"`
	ActiveBatches   int    `json:"active_batches"`
}

// offlineStatus is the fallback shape when the daemon is unreachable.
type offlineStatus struct {
	Running       bool `json:"running"`
	TotalBatches  int  `json:"total_batches"`
	ActiveBatches int  `json:"active_batches"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	status, err := fetchEngineStatus(cmd.Context())
	if err != nil {
		return statusFromStore(cmd.Context())
	}

	if flagJSON {
		return printJSON(status)
	}

	fmt.Printf("Engine:     running (%s)\n", status.Version)
	fmt.Printf("Scheduler:  %s\n", status.Scheduler)
	fmt.Printf("Network:    %s\n", onlineWord(status.Offline))
	fmt.Printf("Session:    %s\n", sessionWord(status.Authenticated))
	fmt.Printf("View:       %s\n", status.View)
	fmt.Printf("Batches:    %d total, %d active\n", status.TotalBatches, status.ActiveBatches)

	if status.Toast != "" {
		fmt.Printf("Toast:      %s\n", status.Toast)
	}

	return nil
}

func fetchEngineStatus(ctx context.Context) (*engineStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, statusRequestTimeout)
	defer cancel()

	url := "http://" + resolvedCfg.UI.ListenAddr + "/status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned %s", resp.Status)
	}

	var status engineStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}

// statusFromStore reports what can be known without a running engine.
func statusFromStore(ctx context.Context) error {
	st, err := openStore(buildLogger())
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	batches, err := st.ListBatches(ctx)
	if err != nil {
		return fmt.Errorf("listing batches: %w", err)
	}

	active := 0
	for _, b := range batches {
		if b.Status == store.StatusActive {
			active++
		}
	}

	if flagJSON {
		return printJSON(offlineStatus{
			TotalBatches:  len(batches),
			ActiveBatches: active,
		})
	}

	fmt.Println("Engine:     not running")
	fmt.Printf("Batches:    %d total, %d active\n", len(batches), active)

	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func onlineWord(offline bool) string {
	if offline {
		return "offline"
	}

	return "online"
}

func sessionWord(authenticated bool) string {
	if authenticated {
		return "authenticated"
	}

	return "logged out"
}
