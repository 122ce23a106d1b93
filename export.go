package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"
)

// export formats
const (
	FormatJSONL = "jsonl"
	FormatXLSX  = "xlsx"
)

// exportHeader is the first JSONL record written by ExportJSONL.
type exportHeader struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	EntryCount int       `json:"entry_count"`
}

type exportRecord struct {
	Type string       `json:"type"`
	Data JournalEntry `json:"data"`
}

// ExportJSONL writes a header line followed by one line per entry.
func ExportJSONL(w io.Writer, entries []JournalEntry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(exportHeader{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		EntryCount: len(entries),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range entries {
		if err := enc.Encode(exportRecord{Type: "journal_entry", Data: e}); err != nil {
			return fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
	}
	return nil
}

const xlsxSheet = "Zastępstwa"

var xlsxHeaders = []string{
	"Data", "Zmiana", "Nieobecny", "Dział", "Powód",
	"Zastępca", "Dział zastępcy", "Agencja", "Zapisano",
}

// ExportXLSX writes the entries as a single-sheet workbook.
func ExportXLSX(w io.Writer, entries []JournalEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &xlsxHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			e.Date,
			string(e.Shift),
			e.AbsentEmployee,
			string(e.AbsentDepartment),
			e.Reason,
			e.SubstituteEmployee,
			string(e.SubstituteDepartment),
			e.Agency,
			e.CreatedAt().Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write entry %s: %w", e.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteExport renders entries in format.
func WriteExport(w io.Writer, format string, entries []JournalEntry) error {
	switch format {
	case FormatJSONL:
		return ExportJSONL(w, entries)
	case FormatXLSX:
		return ExportXLSX(w, entries)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Destination receives an exported journal.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// S3Destination uploads exports to an S3-compatible bucket.
type S3Destination struct {
	client      *s3.Client
	bucket      string
	key         string
	contentType string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, cfg S3Config, contentType string) (*S3Destination, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client:      s3.NewFromConfig(awsCfg, s3opts...),
		bucket:      cfg.Bucket,
		key:         cfg.Key,
		contentType: contentType,
	}, nil
}

func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(d.contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func exportContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/x-ndjson"
}
