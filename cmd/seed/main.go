package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ranlab/bizdir-backend/config"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// seed imports businesses from a file laid out like the export
// (id,name,regionId,industry,year_added,employees,latitude,longitude).
func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	createRegions := flag.Bool("create-regions", false, "create unknown regions, named after their id")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: seed [-yes] [-create-regions] <businesses.xlsx|businesses.csv>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	filters := repository.NewFilterAggregator()
	regionRepo := repository.NewRegionRepository(db.GetDB(), filters)
	businessRepo := repository.NewBusinessRepository(db.GetDB(), filters)

	fmt.Printf("Reading file: %s\n", filePath)
	rows, err := readRows(filePath)
	if err != nil {
		log.Fatal("Failed to read file:", err)
	}

	businesses, skipped := parseRows(rows)
	fmt.Printf("Businesses to import: %d (skipped %d invalid rows)\n", len(businesses), skipped)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	ctx := context.Background()
	if err := ensureRegions(ctx, regionRepo, businesses, *createRegions); err != nil {
		log.Fatal("Failed to prepare regions:", err)
	}

	imported, failed := 0, 0
	for i := range businesses {
		if _, err := businessRepo.Upsert(ctx, &businesses[i]); err != nil {
			failed++
			fmt.Printf("  row %q: %v\n", businesses[i].Name, err)
			continue
		}
		imported++
		if imported%500 == 0 {
			fmt.Printf("  imported %d/%d\n", imported, len(businesses))
		}
	}

	fmt.Println("Import completed.")
	fmt.Printf("Imported: %d, failed: %d\n", imported, failed)
}

// readRows returns every row, header included, of a CSV file or of the
// first sheet of an XLSX workbook.
func readRows(filePath string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		var rows [][]string
		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read CSV: %w", err)
			}
			rows = append(rows, record)
		}
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]model.Business, int) {
	var businesses []model.Business
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		b, err := service.ParseBusinessRecord(row)
		if err != nil {
			skipped++
			fmt.Printf("  skipping row %d: %v\n", i+1, err)
			continue
		}
		businesses = append(businesses, b)
	}
	return businesses, skipped
}

func ensureRegions(ctx context.Context, regionRepo repository.RegionRepository, businesses []model.Business, create bool) error {
	seen := make(map[string]bool)
	for _, b := range businesses {
		if seen[b.RegionID] {
			continue
		}
		seen[b.RegionID] = true

		_, err := regionRepo.FindByID(ctx, b.RegionID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrRegionNotFound) {
			return err
		}
		if !create {
			return fmt.Errorf("region %q does not exist, rerun with -create-regions", b.RegionID)
		}
		if err := regionRepo.Save(ctx, &model.Region{ID: b.RegionID, Name: b.RegionID}); err != nil {
			return err
		}
		fmt.Printf("Created region %s\n", b.RegionID)
	}
	return nil
}
