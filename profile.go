package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harvestguard/harvestguard-go/internal/store"
)

// Flags for profile set.
var (
	profileName     string
	profilePhone    string
	profileNID      string
	profileDivision string
	profileDistrict string
	profileUpazila  string
	profileVillage  string
	profilePIN      string
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the farmer profile",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSetCmd())

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the stored farmer profile",
		RunE:  runProfileShow,
	}
}

func newProfileSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the farmer profile",
		Long: `Store the farmer profile the engine reads: the SMS recipient phone
number and the district used as the weather location. There is exactly one
profile; setting it again replaces it.`,
		RunE: runProfileSet,
	}

	cmd.Flags().StringVar(&profileName, "name", "", "farmer name")
	cmd.Flags().StringVar(&profilePhone, "phone", "", "SMS recipient phone number")
	cmd.Flags().StringVar(&profileNID, "nid", "", "national ID number")
	cmd.Flags().StringVar(&profileDivision, "division", "", "division")
	cmd.Flags().StringVar(&profileDistrict, "district", "", "district (weather location)")
	cmd.Flags().StringVar(&profileUpazila, "upazila", "", "upazila")
	cmd.Flags().StringVar(&profileVillage, "village", "", "village")
	cmd.Flags().StringVar(&profilePIN, "pin", "", "login PIN")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

// profileJSON is the display shape; PIN and picture stay out of it.
type profileJSON struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	NID      string `json:"nid,omitempty"`
	Division string `json:"division,omitempty"`
	District string `json:"district,omitempty"`
	Upazila  string `json:"upazila,omitempty"`
	Village  string `json:"village,omitempty"`
}

func runProfileShow(cmd *cobra.Command, _ []string) error {
	st, err := openStore(buildLogger())
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	p, err := st.Profile(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}

	if p == nil {
		if flagJSON {
			return printJSON(nil)
		}

		fmt.Println("No profile stored.")
		return nil
	}

	if flagJSON {
		return printJSON(profileJSON{
			Name:     p.Name,
			Phone:    p.Phone,
			NID:      p.NID,
			Division: p.Division,
			District: p.District,
			Upazila:  p.Upazila,
			Village:  p.Village,
		})
	}

	fmt.Printf("Name:     %s\n", p.Name)
	fmt.Printf("Phone:    %s\n", p.Phone)
	fmt.Printf("District: %s\n", displayOrUnset(p.District))
	fmt.Printf("Division: %s\n", displayOrUnset(p.Division))

	return nil
}

func runProfileSet(cmd *cobra.Command, _ []string) error {
	st, err := openStore(buildLogger())
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer st.Close()

	p := store.FarmerProfile{
		Name:     profileName,
		Phone:    profilePhone,
		NID:      profileNID,
		Division: profileDivision,
		District: profileDistrict,
		Upazila:  profileUpazila,
		Village:  profileVillage,
		PIN:      profilePIN,
	}

	if err := st.SaveProfile(cmd.Context(), p); err != nil {
		return fmt.Errorf("storing profile: %w", err)
	}

	fmt.Printf("Profile stored for %s (%s)\n", p.Name, p.Phone)

	return nil
}
