// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package columnar

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"
)

// rowGroupSize bounds how many rows are buffered before a row group is
// flushed to the writer, keeping PREPARE's emit step within a bounded
// memory footprint even for the wide cube's tens of millions of rows.
const rowGroupSize = 1_000_000

// buildSchema turns a cube's physical columns into the parquet schema: all
// columns required (no column in a finalized cube is ever NULL — a zero
// count disambiguates an empty SUM).
func buildSchema(columns []Column) (*schema.Schema, error) {
	fields := make(schema.FieldList, 0, len(columns))
	for i, col := range columns {
		fieldID := int32(i + 1) //nolint:gosec // small bounded column count
		var node schema.Node
		var err error
		switch col.Kind {
		case KindInt32:
			node = schema.NewInt32Node(col.Name, parquet.Repetitions.Required, fieldID)
		case KindInt64:
			node = schema.NewInt64Node(col.Name, parquet.Repetitions.Required, fieldID)
		case KindFloat64:
			node = schema.NewFloat64Node(col.Name, parquet.Repetitions.Required, fieldID)
		case KindString:
			node, err = schema.NewPrimitiveNodeLogical(col.Name, parquet.Repetitions.Required,
				schema.StringLogicalType{}, parquet.Types.ByteArray, -1, fieldID)
		default:
			return nil, fmt.Errorf("unsupported column kind for %q", col.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("build schema node for %q: %w", col.Name, err)
		}
		fields = append(fields, node)
	}
	root, err := schema.NewGroupNode("cube", parquet.Repetitions.Required, fields, -1)
	if err != nil {
		return nil, fmt.Errorf("build root schema node: %w", err)
	}
	return schema.NewSchema(root), nil
}

// Write serializes cube to w as Parquet with LZ4 (raw) block compression on
// every column.
func Write(w io.Writer, cube *Cube) error {
	columns := cube.Columns()
	sc, err := buildSchema(columns)
	if err != nil {
		return err
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Lz4Raw),
		parquet.WithDictionaryDefault(false),
	)
	writer := file.NewParquetWriter(w, sc.Root(), file.WithWriterProps(props))

	for start := 0; start < len(cube.Rows) || start == 0; start += rowGroupSize {
		end := start + rowGroupSize
		if end > len(cube.Rows) {
			end = len(cube.Rows)
		}
		if err := writeRowGroup(writer, columns, cube.Rows[start:end]); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write row group [%d:%d): %w", start, end, err)
		}
		if len(cube.Rows) == 0 {
			break
		}
	}

	return writer.Close()
}

func writeRowGroup(writer *file.Writer, columns []Column, rows []Row) error {
	rgw := writer.AppendRowGroup()
	for colIdx, col := range columns {
		cw, err := rgw.NextColumn()
		if err != nil {
			return fmt.Errorf("next column %q: %w", col.Name, err)
		}
		if err := writeColumn(cw, col, colIdx, rows); err != nil {
			return fmt.Errorf("write column %q: %w", col.Name, err)
		}
	}
	return rgw.Close()
}

// cellAt returns the Value for row r, column colIdx: the key columns come
// first (from r.Keys), followed by the five fixed aggregate columns.
func cellAt(r Row, colIdx int) Value {
	if colIdx < len(r.Keys) {
		return r.Keys[colIdx]
	}
	switch colIdx - len(r.Keys) {
	case 0:
		return Float64Value(r.Agg.BidPriceSum)
	case 1:
		return Int64Value(r.Agg.BidPriceCount)
	case 2:
		return Float64Value(r.Agg.TotalPriceSum)
	case 3:
		return Int64Value(r.Agg.TotalPriceCount)
	default:
		return Int64Value(r.Agg.RowCount)
	}
}

func writeColumn(cw file.ColumnChunkWriter, col Column, colIdx int, rows []Row) error {
	switch col.Kind {
	case KindInt32:
		values := make([]int32, len(rows))
		for i, r := range rows {
			values[i] = cellAt(r, colIdx).I32
		}
		_, err := cw.(*file.Int32ColumnChunkWriter).WriteBatch(values, nil, nil)
		return err
	case KindInt64:
		values := make([]int64, len(rows))
		for i, r := range rows {
			values[i] = cellAt(r, colIdx).I64
		}
		_, err := cw.(*file.Int64ColumnChunkWriter).WriteBatch(values, nil, nil)
		return err
	case KindFloat64:
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = cellAt(r, colIdx).F64
		}
		_, err := cw.(*file.Float64ColumnChunkWriter).WriteBatch(values, nil, nil)
		return err
	case KindString:
		values := make([]parquet.ByteArray, len(rows))
		for i, r := range rows {
			values[i] = parquet.ByteArray(cellAt(r, colIdx).Str)
		}
		_, err := cw.(*file.ByteArrayColumnChunkWriter).WriteBatch(values, nil, nil)
		return err
	default:
		return fmt.Errorf("unsupported column kind for %q", col.Name)
	}
}

// Read deserializes a cube previously written by Write. keyColumns must
// match the cube's declared key schema (from the catalog descriptor) in
// order; the five aggregate columns are assumed to follow.
func Read(r parquet.ReaderAtSeeker, id string, keyColumns []Column) (*Cube, error) {
	reader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	columns := append(append([]Column{}, keyColumns...), AggregateColumns()...)
	cube := &Cube{ID: id, KeyColumns: keyColumns}

	for rg := 0; rg < reader.NumRowGroups(); rg++ {
		rgr := reader.RowGroup(rg)
		numRows := rgr.NumRows()
		colValues := make([][]Value, len(columns))
		for colIdx, col := range columns {
			vals, err := readColumn(rgr, colIdx, col, numRows)
			if err != nil {
				return nil, fmt.Errorf("read column %q: %w", col.Name, err)
			}
			colValues[colIdx] = vals
		}
		for i := int64(0); i < numRows; i++ {
			row := Row{Keys: make([]Value, len(keyColumns))}
			for k := range keyColumns {
				row.Keys[k] = colValues[k][i]
			}
			row.Agg = Aggregates{
				BidPriceSum:     colValues[len(keyColumns)][i].F64,
				BidPriceCount:   colValues[len(keyColumns)+1][i].I64,
				TotalPriceSum:   colValues[len(keyColumns)+2][i].F64,
				TotalPriceCount: colValues[len(keyColumns)+3][i].I64,
				RowCount:        colValues[len(keyColumns)+4][i].I64,
			}
			cube.Rows = append(cube.Rows, row)
		}
	}
	return cube, nil
}

func readColumn(rgr *file.RowGroupReader, colIdx int, col Column, numRows int64) ([]Value, error) {
	cr, err := rgr.Column(colIdx)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, numRows)

	switch col.Kind {
	case KindInt32:
		typed := cr.(*file.Int32ColumnChunkReader)
		buf := make([]int32, numRows)
		total, _, err := typed.ReadBatch(numRows, buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < total; i++ {
			out = append(out, Int32Value(buf[i]))
		}
	case KindInt64:
		typed := cr.(*file.Int64ColumnChunkReader)
		buf := make([]int64, numRows)
		total, _, err := typed.ReadBatch(numRows, buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < total; i++ {
			out = append(out, Int64Value(buf[i]))
		}
	case KindFloat64:
		typed := cr.(*file.Float64ColumnChunkReader)
		buf := make([]float64, numRows)
		total, _, err := typed.ReadBatch(numRows, buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < total; i++ {
			out = append(out, Float64Value(buf[i]))
		}
	case KindString:
		typed := cr.(*file.ByteArrayColumnChunkReader)
		buf := make([]parquet.ByteArray, numRows)
		total, _, err := typed.ReadBatch(numRows, buf, nil, nil)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < total; i++ {
			out = append(out, StringValue(string(buf[i])))
		}
	default:
		return nil, fmt.Errorf("unsupported column kind for %q", col.Name)
	}
	return out, nil
}
