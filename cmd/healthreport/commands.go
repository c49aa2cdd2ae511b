package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ehr/healthreport/internal/config"
	"github.com/ehr/healthreport/internal/domain/healthrecord"
	"github.com/ehr/healthreport/internal/export"
	"github.com/ehr/healthreport/internal/intake"
	"github.com/ehr/healthreport/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres backend)",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			target, _ := cmd.Flags().GetInt("to")

			migrator, closePool, err := openMigrator(cmd, dir)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.UpTo(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closePool, err := openMigrator(cmd, dir)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Fprintln(out, "Health records are never deleted; drop the health_records table manually if you really need to.")
			return nil
		},
	})

	return cmd
}

func openMigrator(cmd *cobra.Command, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return nil, nil, fmt.Errorf("migrations only apply to the %q backend, STORE_BACKEND is %q",
			config.BackendPostgres, cfg.StoreBackend)
	}

	pool, err := db.NewPool(cmd.Context(), db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}

	var fsys fs.FS = db.EmbeddedMigrations()
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	return db.NewMigrator(pool, fsys), pool.Close, nil
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func intakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Create a health record on a running server and download its PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			server, _ := flags.GetString("server")
			token, _ := flags.GetString("token")
			out, _ := flags.GetString("out")
			noReport, _ := flags.GetBool("no-report")

			form, err := formFromFlags(flags)
			if err != nil {
				return err
			}

			client := intake.NewClient(server, token)
			id, err := client.CreateRecord(cmd.Context(), form)
			if err != nil {
				return fmt.Errorf("error creating health record: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Health record created: %s\n", id)
			if noReport {
				return nil
			}

			report, err := client.GenerateReport(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("error generating PDF: %w", err)
			}
			if out == "" {
				out = filepath.Base(report.Filename)
			}
			if err := os.WriteFile(out, report.Content, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PDF report written to %s (%d bytes)\n", out, len(report.Content))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("server", "http://localhost:8000", "Base URL of the healthreport server")
	f.String("token", os.Getenv("INTAKE_PUBLIC_TOKEN"), "Bearer token sent to the API")
	f.String("out", "", "Where to write the PDF (default health-report-<id>.pdf)")
	f.Bool("no-report", false, "Only create the record")

	f.String("name", "", "Patient name (required)")
	f.Int("age", 0, "Age in years (required)")
	f.String("gender", "", "male, female or other (required)")
	f.Int("systolic", 0, "Blood pressure, systolic")
	f.Int("diastolic", 0, "Blood pressure, diastolic")
	f.Int("heart-rate", 0, "Heart rate (BPM)")
	f.Float64("temperature", 0, "Temperature (°F)")
	f.Float64("weight", 0, "Weight (lbs)")
	f.Float64("height", 0, "Height (inches)")
	f.String("medical-history", "", "Medical history")
	f.String("medications", "", "Current medications")
	f.String("symptoms", "", "Current symptoms")
	f.String("diagnosis", "", "Diagnosis / notes")
	return cmd
}

// formFromFlags maps the intake flags onto a form. Flags that were not given
// stay absent.
func formFromFlags(flags *pflag.FlagSet) (intake.Form, error) {
	var form intake.Form

	form.PatientName, _ = flags.GetString("name")
	form.Gender, _ = flags.GetString("gender")

	ints := []struct {
		flag string
		dst  **int
	}{
		{"age", &form.Age},
		{"systolic", &form.BloodPressureSystolic},
		{"diastolic", &form.BloodPressureDiastolic},
		{"heart-rate", &form.HeartRate},
	}
	for _, f := range ints {
		if !flags.Changed(f.flag) {
			continue
		}
		v, gerr := flags.GetInt(f.flag)
		if gerr != nil {
			return form, gerr
		}
		*f.dst = &v
	}

	floats := []struct {
		flag string
		dst  **float64
	}{
		{"temperature", &form.Temperature},
		{"weight", &form.Weight},
		{"height", &form.Height},
	}
	for _, f := range floats {
		if !flags.Changed(f.flag) {
			continue
		}
		v, gerr := flags.GetFloat64(f.flag)
		if gerr != nil {
			return form, gerr
		}
		*f.dst = &v
	}

	texts := []struct {
		flag string
		dst  **string
	}{
		{"medical-history", &form.MedicalHistory},
		{"medications", &form.CurrentMedications},
		{"symptoms", &form.Symptoms},
		{"diagnosis", &form.Diagnosis},
	}
	for _, f := range texts {
		if !flags.Changed(f.flag) {
			continue
		}
		v, gerr := flags.GetString(f.flag)
		if gerr != nil {
			return form, gerr
		}
		*f.dst = &v
	}
	return form, nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored health records to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := logger.WithContext(cmd.Context())

			s, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			n, err := export.Write(ctx, healthrecord.NewService(s.Repo), file, limit)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d health record(s) to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().String("out", "health-records.xlsx", "Workbook to write")
	cmd.Flags().Int("limit", 0, "Maximum number of records (0 exports all)")
	return cmd
}
