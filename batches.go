package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harvestguard/harvestguard-go/internal/risk"
	"github.com/harvestguard/harvestguard-go/internal/store"
)

func newBatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List stored harvest batches",
		RunE:  runBatches,
	}

	cmd.Flags().BoolVar(&batchesActiveOnly, "active", false, "show only active batches")

	return cmd
}

var batchesActiveOnly bool

// batchJSON is the CLI wire shape of one batch, shared by add and batches.
type batchJSON struct {
	ID          string   `json:"id"`
	CropType    string   `json:"crop_type"`
	WeightKg    float64  `json:"weight_kg"`
	HarvestDate string   `json:"harvest_date"`
	Division    string   `json:"division"`
	Upazila     string   `json:"upazila,omitempty"`
	Union       string   `json:"union,omitempty"`
	StorageType string   `json:"storage_type"`
	Status      string   `json:"status"`
	EtclHours   *float64 `json:"etcl_hours"`
	RiskLevel   *string  `json:"risk_level"`
}

func toBatchJSON(b store.HarvestBatch) batchJSON {
	out := batchJSON{
		ID:          b.ID,
		CropType:    b.CropType,
		WeightKg:    b.WeightKg,
		HarvestDate: b.HarvestDate,
		Division:    b.Division,
		Upazila:     b.Upazila,
		Union:       b.Union,
		StorageType: b.StorageType,
		Status:      string(b.Status),
		EtclHours:   b.EtclHours,
	}

	if b.RiskLevel != nil {
		level := string(*b.RiskLevel)
		out.RiskLevel = &level
	}

	return out
}

func runBatches(cmd *cobra.Command, _ []string) error {
	st, err := openStore(buildLogger())
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	batches, err := st.ListBatches(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing batches: %w", err)
	}

	if batchesActiveOnly {
		var filtered []store.HarvestBatch
		for _, b := range batches {
			if b.Status == store.StatusActive {
				filtered = append(filtered, b)
			}
		}
		batches = filtered
	}

	if flagJSON {
		out := make([]batchJSON, 0, len(batches))
		for _, b := range batches {
			out = append(out, toBatchJSON(b))
		}

		return printJSON(out)
	}

	if len(batches) == 0 {
		fmt.Println("No batches stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCROP\tKG\tHARVESTED\tDIVISION\tSTORAGE\tSTATUS\tETCL\tRISK")

	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(b.ID), b.CropType, b.WeightKg, b.HarvestDate,
			b.Division, b.StorageType, b.Status,
			etclString(b.EtclHours), riskString(b.RiskLevel),
		)
	}

	return w.Flush()
}

// shortID trims a uuid to its first segment for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func etclString(hours *float64) string {
	if hours == nil {
		return "-"
	}

	return fmt.Sprintf("%gh", *hours)
}

func riskString(level *risk.Tier) string {
	if level == nil {
		return "-"
	}

	return string(*level)
}
