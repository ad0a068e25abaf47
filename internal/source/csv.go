// Package source 读取由外部转换器导出的 CSV 赛程表
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource 以首行为表头，将每行转换为 RawRow
type CSVSource struct {
	name string
	open func() (io.ReadCloser, error)
}

var _ interfaces.RowSource = (*CSVSource)(nil)

// NewCSVFile 从文件读取
func NewCSVFile(path string) *CSVSource {
	return &CSVSource{
		name: path,
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// NewCSVReader 从已有数据读取（如 HTTP 上传的文件）
func NewCSVReader(name string, data []byte) *CSVSource {
	return &CSVSource{
		name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func (s *CSVSource) Name() string { return s.name }

func (s *CSVSource) Rows(ctx context.Context) ([]model.SourceRow, error) {
	rc, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("打开%s失败: %w", s.name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取%s失败: %w", s.name, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取%s表头失败: %w", s.name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []model.SourceRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析%s失败: %w", s.name, err)
		}
		// 引号内换行时一条记录跨多行，取记录起始行
		line, _ := r.FieldPos(0)
		row := make(model.RawRow, len(header))
		blank := true
		for i, col := range header {
			if col == "" {
				continue
			}
			if _, dup := row[col]; dup {
				continue // 重复列名取第一列
			}
			var v string
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}
			if v != "" {
				blank = false
			}
			row[col] = v
		}
		if blank {
			continue
		}
		rows = append(rows, model.SourceRow{Line: line, Cells: row})
	}
	return rows, nil
}
