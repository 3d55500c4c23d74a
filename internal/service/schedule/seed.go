package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"gopkg.in/yaml.v3"
)

// Seed is the development fixture loaded from SCHEDULE_SEED_FILE.
type Seed struct {
	Templates   []schedule.Template `yaml:"templates"`
	Assignments []SeedAssignment    `yaml:"assignments"`
	PINs        []SeedPIN           `yaml:"pins"`
}

type SeedAssignment struct {
	EmployeeID string  `yaml:"employee_id"`
	SiteID     string  `yaml:"site_id"`
	TemplateID string  `yaml:"template_id"`
	HourlyRate string  `yaml:"hourly_rate"`
	StartDate  string  `yaml:"start_date"`
	EndDate    *string `yaml:"end_date"`
}

type SeedPIN struct {
	EmployeeID string `yaml:"employee_id"`
	PIN        string `yaml:"pin"`
}

// PINWriter stores hashed pins.
type PINWriter interface {
	SetPINHash(ctx context.Context, employeeID string, hash []byte) error
}

func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("failed to decode seed: %w", err)
	}
	return seed, nil
}

// ApplySeed upserts templates, then assignments, then pins. Everything goes
// through the same validation as the HTTP API.
func ApplySeed(ctx context.Context, svc schedule.Service, pins PINWriter, seed Seed) error {
	for _, t := range seed.Templates {
		if _, err := svc.UpsertTemplate(ctx, templateRequest(t)); err != nil {
			return fmt.Errorf("seed template %q: %w", t.ID, err)
		}
	}

	for _, a := range seed.Assignments {
		req := schedule.AssignTemplateRequest{
			EmployeeID: a.EmployeeID,
			SiteID:     a.SiteID,
			TemplateID: a.TemplateID,
			HourlyRate: a.HourlyRate,
			StartDate:  a.StartDate,
			EndDate:    a.EndDate,
		}
		if _, err := svc.AssignTemplate(ctx, req); err != nil {
			return fmt.Errorf("seed assignment %s/%s: %w", a.EmployeeID, a.SiteID, err)
		}
	}

	for _, p := range seed.PINs {
		if pins == nil {
			break
		}
		hash, err := verification.HashPIN(p.PIN)
		if err != nil {
			return fmt.Errorf("seed pin for %s: %w", p.EmployeeID, err)
		}
		if err := pins.SetPINHash(ctx, p.EmployeeID, hash); err != nil {
			return fmt.Errorf("seed pin for %s: %w", p.EmployeeID, err)
		}
	}

	slog.Info("Schedule seed applied",
		"templates", len(seed.Templates),
		"assignments", len(seed.Assignments),
		"pins", len(seed.PINs),
	)
	return nil
}

func templateRequest(t schedule.Template) schedule.UpsertTemplateRequest {
	weekdays := make([]int, 0, len(t.Weekdays))
	for _, wd := range t.Weekdays {
		weekdays = append(weekdays, int(wd))
	}
	return schedule.UpsertTemplateRequest{
		ID:                       t.ID,
		Name:                     t.Name,
		SiteID:                   t.SiteID,
		Timezone:                 t.Timezone,
		StartTime:                t.StartTime.String(),
		EndTime:                  t.EndTime.String(),
		Weekdays:                 weekdays,
		EarlyPunchAllowedMinutes: t.EarlyPunchAllowedMinutes,
		LatePunchGraceMinutes:    t.LatePunchGraceMinutes,
		BreakMinutes:             t.BreakMinutes,
		BreakPaid:                t.BreakPaid,
		RequireFaceVerification:  t.RequireFaceVerification,
		AutoClose:                t.AutoClose,
	}
}
