package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

var rowReturning = []string{"select", "with", "pragma", "explain", "show", "values"}

// LeadingKeyword returns the first word of query in lower case, skipping
// leading comments and opening parentheses.
func LeadingKeyword(query string) string {
	fields := strings.Fields(stripLeadingNoise(query))
	if len(fields) == 0 {
		return ""
	}
	kw := strings.ToLower(fields[0])
	if i := strings.IndexAny(kw, "(;"); i >= 0 {
		kw = kw[:i]
	}
	return kw
}

func stripLeadingNoise(q string) string {
	for {
		q = strings.TrimLeft(q, " \t\r\n(")
		switch {
		case strings.HasPrefix(q, "--"):
			i := strings.IndexByte(q, '\n')
			if i < 0 {
				return ""
			}
			q = q[i+1:]
		case strings.HasPrefix(q, "/*"):
			i := strings.Index(q, "*/")
			if i < 0 {
				return ""
			}
			q = q[i+2:]
		default:
			return q
		}
	}
}

func (s *SQLStore) ExecRaw(ctx context.Context, query string) (*RawResult, error) {
	kw := LeadingKeyword(query)
	if kw == "" {
		return nil, fmt.Errorf("empty query")
	}

	for _, r := range rowReturning {
		if kw == r {
			rows := make([]map[string]interface{}, 0)
			if err := sqlscan.Select(ctx, s.db, &rows, query); err != nil {
				return nil, fmt.Errorf("raw query: %w", err)
			}
			for _, row := range rows {
				for k, v := range row {
					if b, ok := v.([]byte); ok {
						row[k] = string(b)
					}
				}
			}
			return &RawResult{Rows: rows, RowsAffected: int64(len(rows))}, nil
		}
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("raw exec: %w", err)
	}
	n, _ := res.RowsAffected()
	return &RawResult{RowsAffected: n}, nil
}
