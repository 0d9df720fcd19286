package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newBeneficiaryCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beneficiary",
		Short: "Manage the beneficiary allocation",
	}
	cmd.AddCommand(
		newBeneficiaryListCommand(cfg),
		newBeneficiaryAddCommand(cfg),
		newBeneficiaryRemoveCommand(cfg),
	)
	return cmd
}

func newBeneficiaryListCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List beneficiaries and the allocated total",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			list := application.beneficiaries.List()
			if len(list) == 0 {
				cmd.Println("No beneficiaries.")
				return nil
			}
			for index, entry := range list {
				cmd.Printf("%2d. %-24s %-16s %6.1f%%\n", index, entry.Name, entry.Relationship, entry.Percentage)
			}
			cmd.Printf("Total allocated: %.1f%% (%s)\n", application.beneficiaries.TotalAllocated(), application.beneficiaries.Allocation())
			return nil
		}),
	}
}

func newBeneficiaryAddCommand(cfg *runtimeConfig) *cobra.Command {
	var name, relationship string
	var percentage float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a beneficiary within the 100% allocation cap",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := application.beneficiaries.Add(cmd.Context(), name, relationship, percentage); err != nil {
				return err
			}
			cmd.Printf("Added %s (%.1f%%); %.1f%% allocated.\n", name, percentage, application.beneficiaries.TotalAllocated())
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, flagName, "", "beneficiary name")
	cmd.Flags().StringVar(&relationship, flagRelationship, "", "relationship to the account holder")
	cmd.Flags().Float64Var(&percentage, flagPercentage, 0, "allocation percentage in (0, 100]")
	return cmd
}

func newBeneficiaryRemoveCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the beneficiary at a list index",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := application.beneficiaries.Remove(cmd.Context(), index); err != nil {
				return err
			}
			cmd.Printf("Removed; %.1f%% allocated.\n", application.beneficiaries.TotalAllocated())
			return nil
		}),
	}
}
