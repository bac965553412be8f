package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"scrap-ledger/internal/app"
)

func newMaterialCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "material",
		Short: "Manage scrap materials and their default rates",
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Add a material",
		Example: `  ledger material add --code CU --name Copper --rate 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("code")
			name, _ := cmd.Flags().GetString("name")
			unit, _ := cmd.Flags().GetString("unit")
			req := app.CreateMaterialRequest{Code: code, Name: name, Unit: unit}
			if cmd.Flags().Changed("rate") {
				rate, err := decimalFlag(cmd, "rate")
				if err != nil {
					return err
				}
				req.DefaultRate = &rate
			}
			res, err := rt.svc.CreateMaterial(cmd.Context(), req)
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Material %s created (%s).\n", res.Material.Code, res.Material.ID)
			})
		},
	}
	add.Flags().String("code", "", "Material code (required)")
	add.Flags().String("name", "", "Display name (required)")
	add.Flags().String("unit", "kg", "Unit of measure")
	add.Flags().String("rate", "", "Default unit rate")
	_ = add.MarkFlagRequired("code")
	_ = add.MarkFlagRequired("name")

	rate := &cobra.Command{
		Use:   "rate <material> <rate>",
		Short: "Change a material's default rate for future transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("rate %q is not a number", args[1])
			}
			res, err := rt.svc.SetMaterialRate(cmd.Context(), app.SetMaterialRateRequest{MaterialRef: args[0], Rate: r})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Default rate of %s is now %s.\n", res.Material.Code, money(*res.Material.DefaultRate))
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List materials",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.svc.ListMaterials(cmd.Context())
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %-30s %-5s %12s\n", "CODE", "NAME", "UNIT", "RATE")
				for _, m := range res.Materials {
					r := "-"
					if m.DefaultRate != nil {
						r = money(*m.DefaultRate)
					}
					fmt.Fprintf(w, "%-10s %-30s %-5s %12s\n", m.Code, m.Name, m.Unit, r)
				}
			})
		},
	}

	cmd.AddCommand(add, rate, list)
	return cmd
}

func newVendorCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendor",
		Short: "Manage counterparties and their rate overrides",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a counterparty",
		Example: `  ledger vendor add --code V1 --name "Ravi Traders" --class yard-vendor
  ledger vendor add --code L1 --name Suresh --class labour --daily-wage 600`,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("code")
			name, _ := cmd.Flags().GetString("name")
			class, _ := cmd.Flags().GetString("class")
			contact, _ := cmd.Flags().GetString("contact")
			req := app.CreateVendorRequest{Code: code, Name: name, Class: class, Contact: contact}

			if class == "labour" {
				wage, err := wageTermsFromFlags(cmd)
				if err != nil {
					return err
				}
				req.Wage = wage
			}

			res, err := rt.svc.CreateVendor(cmd.Context(), req)
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Vendor %s created (%s).\n", res.Vendor.Code, res.Vendor.ID)
			})
		},
	}
	add.Flags().String("code", "", "Vendor code (required)")
	add.Flags().String("name", "", "Display name (required)")
	add.Flags().String("class", "", "collector | yard-vendor | mill-buyer | labour (required)")
	add.Flags().String("contact", "", "Phone or address")
	add.Flags().String("worker-type", "Labour", "Labour or Contractor (labour only)")
	add.Flags().String("role", "", "Role (labour only)")
	add.Flags().String("daily-wage", "", "Daily wage (labour only)")
	add.Flags().String("monthly-salary", "", "Monthly salary (labour only)")
	add.Flags().String("per-kg-rate", "", "Per-kg rate (labour only)")
	_ = add.MarkFlagRequired("code")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("class")

	list := &cobra.Command{
		Use:   "list",
		Short: "List counterparties",
		RunE: func(cmd *cobra.Command, args []string) error {
			class, _ := cmd.Flags().GetString("class")
			res, err := rt.svc.ListVendors(cmd.Context(), class)
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %-30s %-12s %s\n", "CODE", "NAME", "CLASS", "CONTACT")
				for _, v := range res.Vendors {
					fmt.Fprintf(w, "%-10s %-30s %-12s %s\n", v.Code, v.Name, v.Class, v.Contact)
				}
			})
		},
	}
	list.Flags().String("class", "", "Only this class")

	override := &cobra.Command{
		Use:   "override <vendor> <material> <rate>",
		Short: "Set a vendor-specific rate for a material",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("rate %q is not a number", args[2])
			}
			res, err := rt.svc.SetRateOverride(cmd.Context(), app.SetRateOverrideRequest{
				VendorRef:   args[0],
				MaterialRef: args[1],
				Rate:        r,
			})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Override set: %s / %s = %s\n", args[0], args[1], money(res.Override.Rate))
			})
		},
	}

	overrides := &cobra.Command{
		Use:   "overrides <vendor>",
		Short: "List a vendor's rate overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.svc.ListRateOverrides(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Overrides for %s (%s)\n", res.Vendor.Name, res.Vendor.Code)
				for _, o := range res.Overrides {
					fmt.Fprintf(w, "  %-36s %12s  %s\n", o.MaterialID, money(o.Rate), o.UpdatedAt.Format("2006-01-02"))
				}
			})
		},
	}

	cmd.AddCommand(add, list, override, overrides)
	return cmd
}

func wageTermsFromFlags(cmd *cobra.Command) (*app.WageTermsInput, error) {
	workerType, _ := cmd.Flags().GetString("worker-type")
	role, _ := cmd.Flags().GetString("role")
	daily, err := decimalFlag(cmd, "daily-wage")
	if err != nil {
		return nil, err
	}
	monthly, err := decimalFlag(cmd, "monthly-salary")
	if err != nil {
		return nil, err
	}
	perKg, err := decimalFlag(cmd, "per-kg-rate")
	if err != nil {
		return nil, err
	}
	return &app.WageTermsInput{
		WorkerType:    workerType,
		Role:          role,
		DailyWage:     daily,
		MonthlySalary: monthly,
		PerKgRate:     perKg,
	}, nil
}

func newRateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Query the rate catalog",
	}
	resolve := &cobra.Command{
		Use:   "resolve <vendor> <material>",
		Short: "Show the effective unit rate of a material for a vendor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rt.svc.ResolveRate(cmd.Context(), app.ResolveRateRequest{VendorRef: args[0], MaterialRef: args[1]})
			if err != nil {
				return err
			}
			return rt.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s / %s: %s per %s\n", res.Vendor.Code, res.Material.Code, money(res.UnitRate), res.Material.Unit)
			})
		},
	}
	cmd.AddCommand(resolve)
	return cmd
}
