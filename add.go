package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harvestguard/harvestguard-go/internal/store"
)

// Flags for the add command.
var (
	addCrop        string
	addWeightKg    float64
	addHarvestDate string
	addDivision    string
	addUpazila     string
	addUnion       string
	addStorage     string
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new harvest batch",
		Long: `Store a new harvest batch in the local database. The batch starts
active with no risk estimate; the next monitoring cycle or reconnect
resync fills in the shelf-life figures.`,
		RunE: runAdd,
	}

	cmd.Flags().StringVar(&addCrop, "crop", "", "crop type, e.g. potato")
	cmd.Flags().Float64Var(&addWeightKg, "weight", 0, "batch weight in kilograms")
	cmd.Flags().StringVar(&addHarvestDate, "harvest-date", "", "harvest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&addDivision, "division", "", "division, e.g. Rajshahi")
	cmd.Flags().StringVar(&addUpazila, "upazila", "", "upazila")
	cmd.Flags().StringVar(&addUnion, "union", "", "union")
	cmd.Flags().StringVar(&addStorage, "storage", "", "storage type, e.g. open, cold, jute-sack")

	for _, f := range []string{"crop", "weight", "harvest-date", "division", "storage"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	if _, err := time.Parse("2006-01-02", addHarvestDate); err != nil {
		return fmt.Errorf("invalid harvest date %q: expected YYYY-MM-DD", addHarvestDate)
	}

	if addWeightKg <= 0 {
		return fmt.Errorf("weight must be positive, got %g", addWeightKg)
	}

	st, err := openStore(buildLogger())
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	now := time.Now().UnixMilli()
	batch := store.HarvestBatch{
		ID:          uuid.NewString(),
		CropType:    addCrop,
		WeightKg:    addWeightKg,
		HarvestDate: addHarvestDate,
		Division:    addDivision,
		Upazila:     addUpazila,
		Union:       addUnion,
		StorageType: addStorage,
		Status:      store.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := st.InsertBatch(cmd.Context(), batch); err != nil {
		return fmt.Errorf("storing batch: %w", err)
	}

	if flagJSON {
		return printJSON(toBatchJSON(batch))
	}

	fmt.Printf("Added batch %s: %g kg of %s from %s\n", batch.ID, batch.WeightKg, batch.CropType, batch.Division)

	return nil
}
