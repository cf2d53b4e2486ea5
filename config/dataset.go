package config

import (
	"errors"

	"github.com/kilianp07/conformance/infra/dataset"
)

func setDatasetDefaults(d *dataset.Options) {
	if d.Separator == "" {
		d.Separator = ";"
	}
	if d.Encoding == "" {
		d.Encoding = "iso-8859-1"
	}
	if d.DateFormat == "" {
		d.DateFormat = "02/01/2006"
	}
	if d.Columns.Slice == "" {
		d.Columns.Slice = "SLICE"
	}
	if d.Columns.Category == "" {
		d.Columns.Category = "TIPO_URGENZA"
	}
	if d.PlannedValue == "" {
		d.PlannedValue = "preventivato"
	}
	if d.ActualValue == "" {
		d.ActualValue = "actual"
	}
}

func validateDataset(d dataset.Options) error {
	switch {
	case d.Path == "":
		return errors.New("path is required")
	case d.Columns.Group == "":
		return errors.New("columns.group is required")
	case d.Columns.Date == "":
		return errors.New("columns.date is required")
	case d.Columns.Activity == "":
		return errors.New("columns.activity is required")
	case len([]rune(d.Separator)) != 1:
		return errors.New("separator must be a single character")
	case d.PlannedValue == d.ActualValue:
		return errors.New("planned_value and actual_value must differ")
	}
	return nil
}
