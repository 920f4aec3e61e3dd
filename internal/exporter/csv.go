package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// CSV writes records to a local CSV file. Rows are keyed by date: syncing a
// date that already has a row replaces it instead of appending a duplicate.
type CSV struct {
	path string
}

// NewCSV returns a CSV exporter writing to path.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Export merges the records into the file and rewrites it sorted by date.
func (c *CSV) Export(ctx context.Context, records []Record) error {
	existing, err := c.readExisting()
	if err != nil {
		return err
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := r.row()
		existing[row[0]] = row
	}

	dates := make([]string, 0, len(existing))
	for date := range existing {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	file, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, date := range dates {
		if err := w.Write(existing[date]); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}

	logrus.WithFields(logrus.Fields{
		"path": c.path,
		"rows": len(dates),
	}).Infoln("Wrote CSV export")

	return nil
}

// readExisting loads current rows keyed by date. A missing file or one with
// a stale header yields an empty map and the file gets rewritten in full.
func (c *CSV) readExisting() (map[string][]string, error) {
	rows := make(map[string][]string)

	file, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return rows, nil
		}
		return nil, fmt.Errorf("opening %s: %w", c.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}
	if len(all) < 2 {
		return rows, nil
	}
	if len(all[0]) != len(header) {
		logrus.WithField("path", c.path).Warnln("CSV header layout changed, rewriting file")
		return rows, nil
	}

	for _, row := range all[1:] {
		if len(row) == len(header) {
			rows[row[0]] = row
		}
	}
	return rows, nil
}
