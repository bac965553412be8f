// Package catalogfile loads reference data (materials, vendors and rate
// overrides) from a YAML file and applies it through the reference service.
package catalogfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"scrap-ledger/internal/core"
)

// Catalog is the on-disk layout of a seed file. Amounts are strings so they
// keep their exact decimal value.
type Catalog struct {
	Materials []MaterialEntry `yaml:"materials"`
	Vendors   []VendorEntry   `yaml:"vendors"`
}

type MaterialEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Unit string `yaml:"unit"`
	Rate string `yaml:"rate"`
}

type VendorEntry struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Class   string `yaml:"class"`
	Contact string `yaml:"contact"`
	// Overrides maps material code to unit rate.
	Overrides map[string]string `yaml:"overrides"`
	Wage      *WageEntry        `yaml:"wage"`
}

type WageEntry struct {
	WorkerType    string `yaml:"worker_type"`
	Role          string `yaml:"role"`
	DailyWage     string `yaml:"daily_wage"`
	MonthlySalary string `yaml:"monthly_salary"`
	PerKgRate     string `yaml:"per_kg_rate"`
}

// Result counts what Apply created.
type Result struct {
	Materials int
	Vendors   int
	Overrides int
	Skipped   int
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML and checks that every amount is a number.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	materials := make(map[string]bool, len(c.Materials))
	for i, m := range c.Materials {
		code := strings.ToUpper(strings.TrimSpace(m.Code))
		if code == "" || m.Name == "" {
			return fmt.Errorf("material %d: code and name are required", i+1)
		}
		if materials[code] {
			return fmt.Errorf("material %s listed twice", code)
		}
		materials[code] = true
		if _, err := optionalAmount(m.Rate); err != nil {
			return fmt.Errorf("material %s: rate: %w", code, err)
		}
	}
	for i, v := range c.Vendors {
		if v.Code == "" || v.Name == "" {
			return fmt.Errorf("vendor %d: code and name are required", i+1)
		}
		if !core.CounterpartyClass(v.Class).Valid() {
			return fmt.Errorf("vendor %s: unknown class %q", v.Code, v.Class)
		}
		for code, rate := range v.Overrides {
			if _, err := decimal.NewFromString(rate); err != nil {
				return fmt.Errorf("vendor %s: override %s: %w", v.Code, code, err)
			}
		}
		if v.Wage != nil {
			if _, err := v.Wage.terms(); err != nil {
				return fmt.Errorf("vendor %s: wage: %w", v.Code, err)
			}
		}
	}
	return nil
}

func optionalAmount(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func amountOrZero(s string) (decimal.Decimal, error) {
	d, err := optionalAmount(s)
	if err != nil || d == nil {
		return decimal.Zero, err
	}
	return *d, nil
}

func (w *WageEntry) terms() (*core.WageTerms, error) {
	daily, err := amountOrZero(w.DailyWage)
	if err != nil {
		return nil, fmt.Errorf("daily_wage: %w", err)
	}
	monthly, err := amountOrZero(w.MonthlySalary)
	if err != nil {
		return nil, fmt.Errorf("monthly_salary: %w", err)
	}
	perKg, err := amountOrZero(w.PerKgRate)
	if err != nil {
		return nil, fmt.Errorf("per_kg_rate: %w", err)
	}
	return &core.WageTerms{
		WorkerType:    core.WorkerType(w.WorkerType),
		Role:          w.Role,
		DailyWage:     daily,
		MonthlySalary: monthly,
		PerKgRate:     perKg,
	}, nil
}

// Apply creates every material, vendor and override in c. Entries whose code
// already exists are skipped; overrides are always written, last write wins.
func Apply(ctx context.Context, ref core.ReferenceService, c *Catalog, log zerolog.Logger) (Result, error) {
	var res Result

	for _, m := range c.Materials {
		rate, _ := optionalAmount(m.Rate)
		_, err := ref.CreateMaterial(ctx, core.MaterialInput{
			Code:        m.Code,
			Name:        m.Name,
			Unit:        m.Unit,
			DefaultRate: rate,
		})
		switch {
		case errors.Is(err, core.ErrConflict):
			log.Debug().Str("code", m.Code).Msg("material exists, skipped")
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("material %s: %w", m.Code, err)
		default:
			res.Materials++
		}
	}

	for _, v := range c.Vendors {
		in := core.VendorInput{
			Code:    v.Code,
			Name:    v.Name,
			Class:   core.CounterpartyClass(v.Class),
			Contact: v.Contact,
		}
		if v.Wage != nil {
			in.Wage, _ = v.Wage.terms()
		}
		vendor, err := ref.CreateVendor(ctx, in)
		switch {
		case errors.Is(err, core.ErrConflict):
			log.Debug().Str("code", v.Code).Msg("vendor exists, skipped")
			res.Skipped++
			if vendor, err = ref.FindVendor(ctx, v.Code); err != nil {
				return res, fmt.Errorf("vendor %s: %w", v.Code, err)
			}
		case err != nil:
			return res, fmt.Errorf("vendor %s: %w", v.Code, err)
		default:
			res.Vendors++
		}

		for code, rate := range v.Overrides {
			material, err := ref.FindMaterial(ctx, code)
			if err != nil {
				return res, fmt.Errorf("vendor %s override %s: %w", v.Code, code, err)
			}
			if _, err := ref.SetRateOverride(ctx, vendor.ID, material.ID, decimal.RequireFromString(rate)); err != nil {
				return res, fmt.Errorf("vendor %s override %s: %w", v.Code, code, err)
			}
			res.Overrides++
		}
	}

	log.Info().
		Int("materials", res.Materials).
		Int("vendors", res.Vendors).
		Int("overrides", res.Overrides).
		Int("skipped", res.Skipped).
		Msg("catalog applied")
	return res, nil
}
